package geneexpr

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

func TestDetectDataType(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write([]byte("ID_REF\tVALUE\n"))
	w.Close()

	for _, v := range []struct {
		Name     string
		Input    []byte
		Expected DataType
	}{
		{"gzip", gz.Bytes(), DataTypeGzip},
		{"plain", []byte("ID_REF\tVALUE\n"), DataTypeNoCompression},
		{"short", []byte("ab"), DataTypeNoCompression},
		{"empty", []byte{}, DataTypeNoCompression},
		{"bzip2", []byte("BZh91AY&SY"), DataTypeBZip2},
	} {
		dt, err := DetectDataType(bytes.NewReader(v.Input))
		if err != nil {
			t.Fatalf("%s: %v", v.Name, err)
		}
		if dt != v.Expected {
			t.Errorf("%s: got %s, expected %s", v.Name, dt, v.Expected)
		}
	}
}

func TestMaybeDecompressReadCloser(t *testing.T) {
	payload := "!sample_table_begin\nID_REF\tVALUE\n101_at\t10\n!sample_table_end\n"

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write([]byte(payload))
	w.Close()

	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	member, err := zw.Create("GSE1_family.soft")
	if err != nil {
		t.Fatal(err)
	}
	member.Write([]byte(payload))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	for name, input := range map[string][]byte{
		"gzip":  gz.Bytes(),
		"zip":   zipped.Bytes(),
		"plain": []byte(payload),
	} {
		rc, err := MaybeDecompressReadCloser(nopSeekCloser{bytes.NewReader(input)})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		out, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(out) != payload {
			t.Errorf("%s: got %q", name, out)
		}
	}
}

func TestMaybeDecompressReadCloserRejectsLZW(t *testing.T) {
	input := []byte{0x1f, 0x9d, 0x90, 0x5e, 0x00}
	if dt, err := DetectDataType(bytes.NewReader(input)); err != nil || dt != DataTypeLZW {
		t.Fatalf("got %s, %v", dt, err)
	}

	if rc, err := MaybeDecompressReadCloser(nopSeekCloser{bytes.NewReader(input)}); err == nil {
		rc.Close()
		t.Error("expected an error for Unix compress input")
	}
}

func TestOpenDecompressedLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GSE1_family.soft.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := gzip.NewWriter(f)
	w.Write([]byte("^SERIES = GSE1\n"))
	w.Close()
	f.Close()

	rc, err := OpenDecompressed(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "^SERIES = GSE1\n" {
		t.Errorf("got %q", out)
	}
}

func TestOpenGoogleStorageWithoutClient(t *testing.T) {
	if _, err := Open(context.Background(), "gs://bucket/GSE1_family.soft.gz", nil); err == nil {
		t.Error("expected an error without a storage client")
	}
}

func TestDetermineDelimiterBytes(t *testing.T) {
	for _, v := range []struct {
		Input    string
		Expected rune
	}{
		{"ID\tENTREZ_GENE_ID\tSpecies\n1007_s_at\t780\tHomo sapiens\n", '\t'},
		{"miRNA,entrez\nmir20a,7157\nmir21,1026\n", ','},
		{"a;b,c\n1;2,3\n4;5,6\n", ','},
		{"a|b;c\n1|2;3\n4|5;6\n", ';'},
	} {
		if got := DetermineDelimiterBytes([]byte(v.Input), '\t'); got != v.Expected {
			t.Errorf("%q: got %q, expected %q", v.Input, got, v.Expected)
		}
	}
}
