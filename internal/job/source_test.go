package job

import (
	"io"
	"testing"
)

func TestRootSourceAlwaysReportsEOF(t *testing.T) {
	var rs RootSource
	_, err := rs.ReadLine()
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if rs.IsFile() {
		t.Fatalf("RootSource must not report as a file source")
	}
}

func TestFileSourceReadsLinesAndTracksPosition(t *testing.T) {
	fs := NewFileSource("prog.nc", []byte("G1 X1\r\nG1 Y2\nM30"))

	line, err := fs.ReadLine()
	if err != nil || line != "G1 X1" {
		t.Fatalf("expected %q, nil, got %q, %v", "G1 X1", line, err)
	}
	posAfterFirst := fs.Position()

	line, err = fs.ReadLine()
	if err != nil || line != "G1 Y2" {
		t.Fatalf("expected %q, nil, got %q, %v", "G1 Y2", line, err)
	}

	line, err = fs.ReadLine()
	if err != nil || line != "M30" {
		t.Fatalf("expected %q, nil, got %q, %v", "M30", line, err)
	}

	if _, err := fs.ReadLine(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of file, got %v", err)
	}

	if err := fs.Rewind(posAfterFirst); err != nil {
		t.Fatalf("unexpected rewind error: %v", err)
	}
	line, err = fs.ReadLine()
	if err != nil || line != "G1 Y2" {
		t.Fatalf("expected rewind to replay %q, got %q, %v", "G1 Y2", line, err)
	}
}

func TestFileSourceIsFileAndNamed(t *testing.T) {
	fs := NewFileSource("sub.nc", []byte("M30"))
	if !fs.IsFile() {
		t.Fatalf("FileSource must report as a file source")
	}
	if fs.Name() != "sub.nc" {
		t.Fatalf("expected name sub.nc, got %q", fs.Name())
	}
}
