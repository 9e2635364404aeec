package ontology

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const writerBufferSize = 64 * 1024

// WriteJSON writes v as compact JSON. Documents, reports and tree
// snapshots all go through here.
func WriteJSON(w io.Writer, v any) error {
	return writeJSON(w, v, false)
}

// WriteJSONPretty writes indented JSON.
func WriteJSONPretty(w io.Writer, v any) error {
	return writeJSON(w, v, true)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	bw := bufio.NewWriterSize(w, writerBufferSize)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteJSONFile writes v as indented JSON to path.
func WriteJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteJSONPretty(f, v)
}

// Write encodes a document as YAML.
func Write(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
