package instrument

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/hillas.stream/internal/fsutil"
)

// ErrAssetLoad wraps every failure to load the instrument asset. It is
// fatal to the stage instance that hit it.
var ErrAssetLoad = errors.New("instrument asset load failed")

// Load reads a gzip-compressed CBOR instrument description from fsys.
func Load(fsys fsutil.FileSystem, path string) (*Description, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrAssetLoad, path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip %s: %v", ErrAssetLoad, path, err)
	}
	defer zr.Close()

	var d Description
	if err := cbor.NewDecoder(zr).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrAssetLoad, path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetLoad, path, err)
	}
	return &d, nil
}

// Save writes d to path as a gzip-compressed CBOR asset.
func Save(fsys fsutil.FileSystem, path string, d *Description) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid instrument: %w", err)
	}

	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("cbor encoder: %w", err)
	}
	data, err := enc.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode instrument: %w", err)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
