package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/inamate/designkit/internal/typeid"
)

var ErrNotFound = errors.New("asset not found")

// Library stores uploaded images as PNG files named by asset id and serves
// decoded images to the renderer.
type Library struct {
	dir string

	mu    sync.Mutex
	cache map[string]image.Image
}

func NewLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Library{dir: dir, cache: make(map[string]image.Image)}, nil
}

func (l *Library) Dir() string { return l.dir }

func (l *Library) path(id string) string {
	return filepath.Join(l.dir, id+".png")
}

// Save encodes img as a new asset and returns its id.
func (l *Library) Save(img image.Image) (string, error) {
	id := typeid.NewAssetID()
	p := l.path(id)

	out, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(p)
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("close asset file: %w", err)
	}

	l.mu.Lock()
	l.cache[id] = img
	l.mu.Unlock()
	return id, nil
}

// ID extracts the asset id from an image source, which is either the bare
// id or its served URL.
func ID(source string) (string, error) {
	id := strings.TrimPrefix(source, "/assets/")
	id = strings.TrimSuffix(id, ".png")
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return id, nil
}

// Image implements render.ImageSource.
func (l *Library) Image(source string) (image.Image, error) {
	id, err := ID(source)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	img, ok := l.cache[id]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	f, err := os.Open(l.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer f.Close()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", id, err)
	}

	l.mu.Lock()
	l.cache[id] = img
	l.mu.Unlock()
	return img, nil
}

// Delete removes an asset file and forgets its cached image.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	delete(l.cache, id)
	l.mu.Unlock()

	if err := os.Remove(l.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}
