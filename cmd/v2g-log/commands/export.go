package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/evse-go/iso15118/pkg/log"
)

// exporter writes every event of a capture to w.
type exporter func(events *log.Reader, w io.Writer) error

var exporters = map[string]exporter{
	"jsonl": exportJSONL,
	"csv":   exportCSV,
}

var csvColumns = []string{
	"timestamp", "connection_id", "session_id", "direction",
	"layer", "category", "type", "response_code",
}

// RunExport converts the capture at path to format, writing to output or
// stdout when output is empty.
func RunExport(path, format, output string) error {
	export, ok := exporters[format]
	if !ok {
		names := make([]string, 0, len(exporters))
		for name := range exporters {
			names = append(names, name)
		}
		slices.Sort(names)
		return fmt.Errorf("export format %q not supported (have %s)", format, strings.Join(names, ", "))
	}

	events, err := log.NewReader(path)
	if err != nil {
		return err
	}
	defer events.Close()

	if output == "" {
		return export(events, os.Stdout)
	}
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := export(events, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func exportJSONL(events *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for event, err := range events.All() {
		if err != nil {
			return err
		}
		if m := event.Message; m != nil {
			converted := *m
			converted.Payload = jsonValue(m.Payload)
			event.Message = &converted
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("export %s: %w", eventLabel(event), err)
		}
	}
	return nil
}

// jsonValue converts CBOR-decoded maps, whose keys are integers, into a
// form encoding/json accepts.
func jsonValue(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = jsonValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case []byte:
		return hex.EncodeToString(x)
	default:
		return x
	}
}

func exportCSV(events *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}

	for event, err := range events.All() {
		if err != nil {
			cw.Flush()
			return err
		}
		var code string
		if m := event.Message; m != nil && m.ResponseCode != nil {
			code = m.ResponseCode.String()
		}
		cw.Write([]string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.ConnectionID,
			event.SessionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			eventLabel(event),
			code,
		})
	}
	cw.Flush()
	return cw.Error()
}
