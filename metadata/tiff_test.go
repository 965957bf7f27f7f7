package metadata

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildTIFF assembles a minimal single-IFD TIFF container holding one tag
// with the given payload stored past the directory.
func buildTIFF(order binary.ByteOrder, tag uint16, fieldType uint16, payload []byte) []byte {
	var buf bytes.Buffer

	if order == binary.LittleEndian {
		buf.WriteString("II")
	} else {
		buf.WriteString("MM")
	}
	binary.Write(&buf, order, uint16(42))
	binary.Write(&buf, order, uint32(8)) // first IFD right after the header

	binary.Write(&buf, order, uint16(1)) // one directory entry
	binary.Write(&buf, order, tag)
	binary.Write(&buf, order, fieldType)
	binary.Write(&buf, order, uint32(len(payload)))
	binary.Write(&buf, order, uint32(26)) // header + count + entry + next-IFD pointer
	binary.Write(&buf, order, uint32(0))  // no next IFD

	buf.Write(payload)
	return buf.Bytes()
}

func TestFindTagLittleEndian(t *testing.T) {
	payload := []byte("<FeiImage><databarLabel>x</databarLabel></FeiImage>\x00")
	data := buildTIFF(binary.LittleEndian, phenomTag, 7, payload)

	got, err := findTag(data, phenomTag)
	if err != nil {
		t.Fatalf("findTag failed: %v", err)
	}
	if !bytes.Equal(got, bytes.TrimRight(payload, "\x00")) {
		t.Errorf("Unexpected payload: %q", got)
	}
}

func TestFindTagBigEndian(t *testing.T) {
	payload := []byte("<FeiImage/>\x00")
	data := buildTIFF(binary.BigEndian, phenomTag, 2, payload)

	got, err := findTag(data, phenomTag)
	if err != nil {
		t.Fatalf("findTag failed: %v", err)
	}
	if string(got) != "<FeiImage/>" {
		t.Errorf("Unexpected payload: %q", got)
	}
}

func TestFindTagInlineValue(t *testing.T) {
	// Values of four bytes or fewer live inside the directory entry itself.
	var buf bytes.Buffer
	order := binary.LittleEndian
	buf.WriteString("II")
	binary.Write(&buf, order, uint16(42))
	binary.Write(&buf, order, uint32(8))
	binary.Write(&buf, order, uint16(1))
	binary.Write(&buf, order, uint16(phenomTag))
	binary.Write(&buf, order, uint16(2))
	binary.Write(&buf, order, uint32(3))
	buf.Write([]byte{'a', 'b', 0, 0})
	binary.Write(&buf, order, uint32(0))

	got, err := findTag(buf.Bytes(), phenomTag)
	if err != nil {
		t.Fatalf("findTag failed: %v", err)
	}
	if string(got) != "ab" {
		t.Errorf("Expected inline value ab, got %q", got)
	}
}

func TestFindTagErrors(t *testing.T) {
	if _, err := findTag([]byte("not a tiff at all"), phenomTag); err == nil {
		t.Error("Expected an error for a non-TIFF byte order mark")
	}
	if _, err := findTag([]byte{'I', 'I'}, phenomTag); err == nil {
		t.Error("Expected an error for a truncated header")
	}

	// A valid container without the requested tag.
	data := buildTIFF(binary.LittleEndian, 256, 2, []byte("x\x00"))
	if _, err := findTag(data, phenomTag); err == nil {
		t.Error("Expected an error when the tag is absent")
	}
}

func TestPhenomTIFFExtractorCanExtract(t *testing.T) {
	e := NewPhenomTIFFExtractor()
	for path, want := range map[string]bool{
		"a.tif":  true,
		"A.TIFF": true,
		"b.jpg":  false,
		"c.cr3":  false,
	} {
		if got := e.CanExtract(path); got != want {
			t.Errorf("CanExtract(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestPhenomTIFFExtractorExtract(t *testing.T) {
	doc := `<FeiImage>
		<databarLabel>test frame</databarLabel>
		<pixelWidth>1000</pixelWidth>
		<cropHint><right>200</right><bottom>100</bottom></cropHint>
		<samplePosition><x>10</x><y>20</y></samplePosition>
	</FeiImage>`
	data := buildTIFF(binary.LittleEndian, phenomTag, 7, append([]byte(doc), 0))

	path := filepath.Join(t.TempDir(), "frame.tif")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Cannot write test file: %v", err)
	}

	meta, err := NewPhenomTIFFExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if meta.DatabarLabel != "test frame" {
		t.Errorf("Unexpected databar label %q", meta.DatabarLabel)
	}
	if !meta.HasGeometry() {
		t.Fatal("Expected geometry from the embedded document")
	}
	fovW, fovH, x, y, _ := meta.Geometry()
	if fovW != 200 || fovH != 100 || x != 10 || y != 20 {
		t.Errorf("Unexpected geometry: %g %g %g %g", fovW, fovH, x, y)
	}
}

func TestPhenomTIFFExtractorExtractNoTag(t *testing.T) {
	data := buildTIFF(binary.LittleEndian, 256, 2, []byte("x\x00"))
	path := filepath.Join(t.TempDir(), "plain.tif")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Cannot write test file: %v", err)
	}

	if _, err := NewPhenomTIFFExtractor().Extract(path); err == nil {
		t.Error("Expected an error for a TIFF without the metadata tag")
	}
}
