package commands

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/crispcore/gocrisp/internal/crisp"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// parsedView is the JSON-friendly representation of a crisp.MessageView.
type parsedView struct {
	Version      uint16 `json:"version"`
	Suite        string `json:"suite"`
	KeyIDPresent bool   `json:"key_id_present"`
	KeyIDHex     string `json:"key_id_hex,omitempty"`
	SeqNum       uint64 `json:"seq_num"`
	PayloadLen   int    `json:"payload_len"`
	ICVLen       int    `json:"icv_len"`
}

func toParsedView(view crisp.MessageView) parsedView {
	return parsedView{
		Version:      view.Version,
		Suite:        view.CS.String(),
		KeyIDPresent: view.KeyIDPresent,
		KeyIDHex:     hex.EncodeToString(view.KeyID),
		SeqNum:       view.SeqNum,
		PayloadLen:   len(view.Payload),
		ICVLen:       len(view.ICV),
	}
}

// formatParsedView renders a parsed message view in the requested format.
func formatParsedView(view crisp.MessageView, format string) (string, error) {
	pv := toParsedView(view)

	switch format {
	case formatJSON:
		b, err := json.MarshalIndent(pv, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal parsed view: %w", err)
		}
		return string(b), nil
	case formatTable:
		return formatParsedViewTable(pv), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatParsedViewTable(pv parsedView) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "VERSION\tSUITE\tKEY-ID-PRESENT\tKEY-ID\tSEQ-NUM\tPAYLOAD-BYTES\tICV-BYTES\n")
	fmt.Fprintf(w, "%d\t%s\t%v\t%s\t%d\t%d\t%d\n",
		pv.Version, pv.Suite, pv.KeyIDPresent, pv.KeyIDHex, pv.SeqNum, pv.PayloadLen, pv.ICVLen)
	_ = w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}
