package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLibrarySaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	id, err := lib.Save(solid(4, 3, color.RGBA{255, 0, 0, 255}))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh library has to read the file back from disk.
	fresh, _ := NewLibrary(dir)
	for _, source := range []string{id, "/assets/" + id + ".png"} {
		img, err := fresh.Image(source)
		if err != nil {
			t.Fatalf("Image(%q): %v", source, err)
		}
		if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
			t.Errorf("bounds = %v", b)
		}
	}

	if err := fresh.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fresh.Image(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: got %v", err)
	}
}

func TestLibraryRejectsForeignSources(t *testing.T) {
	lib, _ := NewLibrary(t.TempDir())
	for _, source := range []string{"", "https://example.com/a.png", "../secret", "user_01h455vb4pex5vsknk084sn02q"} {
		if _, err := lib.Image(source); !errors.Is(err, ErrNotFound) {
			t.Errorf("Image(%q) = %v, want ErrNotFound", source, err)
		}
	}
}

func TestUpload(t *testing.T) {
	lib, _ := NewLibrary(t.TempDir())
	h := NewHandler(lib)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="dot.png"`)
	hdr.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(hdr)
	png.Encode(part, solid(2, 2, color.White))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Width != 2 || resp.Name != "dot.png" {
		t.Errorf("resp = %+v", resp)
	}
	if _, err := lib.Image(resp.URL); err != nil {
		t.Errorf("uploaded asset not loadable: %v", err)
	}
}
