package chat

import (
	"bufio"
	"encoding/json"
)

const (
	finishFrame = "d:{\"finishReason\":\"stop\"}\n"
	errorFrame  = "3:\"An error occurred.\"\n"
)

// frameWriter encodes deltas in the line protocol the web client reads:
// "0:<json string>" per delta, "d:" on completion, "3:" on failure.
type frameWriter struct {
	w *bufio.Writer
}

func (f frameWriter) delta(text string) error {
	encoded, err := json.Marshal(text)
	if err != nil {
		return err
	}
	if _, err := f.w.WriteString("0:"); err != nil {
		return err
	}
	if _, err := f.w.Write(encoded); err != nil {
		return err
	}
	if err := f.w.WriteByte('\n'); err != nil {
		return err
	}
	return f.w.Flush()
}

func (f frameWriter) finish() error {
	if _, err := f.w.WriteString(finishFrame); err != nil {
		return err
	}
	return f.w.Flush()
}

func (f frameWriter) fail() error {
	if _, err := f.w.WriteString(errorFrame); err != nil {
		return err
	}
	return f.w.Flush()
}
