package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/natefinch/atomic"
)

//go:embed map.html.tmpl
var mapTemplate string

var tmpl = template.Must(template.New("map").Parse(mapTemplate))

// WriteHTML executes the map template for doc.
func WriteHTML(w io.Writer, doc Document) error {
	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("execute map template: %w", err)
	}
	return nil
}

// WriteFile renders doc and atomically replaces the file at path, so a
// browser or server never sees a half-written page.
func WriteFile(path string, doc Document) error {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, doc); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write map %s: %w", path, err)
	}
	return nil
}
