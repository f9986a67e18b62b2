package instrument

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTelescope is returned when a telescope id is not part of the
// loaded description.
var ErrUnknownTelescope = errors.New("unknown telescope")

// Telescope is the static description of one telescope. Lengths are metres.
type Telescope struct {
	ID          int        `cbor:"id" json:"id"`
	Position    [3]float64 `cbor:"position" json:"position"` // ground frame, z up
	FocalLength float64    `cbor:"focal_length" json:"focal_length"`
	CameraName  string     `cbor:"camera_name" json:"camera_name"`
	PixelX      []float64  `cbor:"pix_x" json:"pix_x"`
	PixelY      []float64  `cbor:"pix_y" json:"pix_y"`
}

// Description is the whole-array instrument asset.
type Description struct {
	Name       string            `cbor:"name" json:"name"`
	Telescopes map[int]Telescope `cbor:"telescopes" json:"telescopes"`
}

// Telescope returns the telescope with the given id.
func (d *Description) Telescope(id int) (Telescope, error) {
	tel, ok := d.Telescopes[id]
	if !ok {
		return Telescope{}, fmt.Errorf("%w: %d", ErrUnknownTelescope, id)
	}
	return tel, nil
}

// TelescopeIDs returns all telescope ids in ascending order.
func (d *Description) TelescopeIDs() []int {
	ids := make([]int, 0, len(d.Telescopes))
	for id := range d.Telescopes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks internal consistency of the description.
func (d *Description) Validate() error {
	if len(d.Telescopes) == 0 {
		return errors.New("instrument has no telescopes")
	}
	for id, tel := range d.Telescopes {
		if tel.ID != id {
			return fmt.Errorf("telescope keyed %d carries id %d", id, tel.ID)
		}
		if len(tel.PixelX) == 0 || len(tel.PixelX) != len(tel.PixelY) {
			return fmt.Errorf("telescope %d: pixel position arrays have lengths %d and %d",
				id, len(tel.PixelX), len(tel.PixelY))
		}
		if tel.FocalLength <= 0 {
			return fmt.Errorf("telescope %d: focal length must be positive, got %g", id, tel.FocalLength)
		}
	}
	return nil
}
