package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/storefront/internal/seqguard"
)

var (
	// ErrUnknownDivision is returned when a code is not among the current options.
	ErrUnknownDivision = errors.New("unknown administrative division")
	// ErrSuperseded is returned when a newer selection replaced this one mid-flight.
	ErrSuperseded = errors.New("selection superseded by a newer one")
	// ErrIncomplete is returned by Address before all three levels are chosen.
	ErrIncomplete = errors.New("address selection incomplete")
)

// Selection is the chosen code per level; zero means unset.
type Selection struct {
	Province int `json:"province"`
	District int `json:"district"`
	Ward     int `json:"ward"`
}

// View is a rendering copy of the cascade.
type View struct {
	Provinces []Division
	Districts []Division
	Wards     []Division
	Province  Division
	District  Division
	Ward      Division
}

// Complete reports whether all three levels are chosen.
func (v View) Complete() bool {
	return v.Province.Code != 0 && v.District.Code != 0 && v.Ward.Code != 0
}

// Cascade is the Province → District → Ward state machine. Choosing a level
// clears every level below it before the new child list is fetched, and a
// fetch only applies if no newer selection of its level started meanwhile.
//
// Lock order is slot, then mu.
type Cascade struct {
	provider Provider

	districtSlot seqguard.Slot
	wardSlot     seqguard.Slot

	mu        sync.Mutex
	provinces []Division
	districts []Division
	wards     []Division
	sel       Selection
}

// NewCascade returns an empty cascade.
func NewCascade(provider Provider) *Cascade {
	return &Cascade{provider: provider}
}

// LoadProvinces fetches the root level if it is not loaded yet.
func (c *Cascade) LoadProvinces(ctx context.Context) error {
	c.mu.Lock()
	loaded := len(c.provinces) > 0
	c.mu.Unlock()
	if loaded {
		return nil
	}

	list, err := c.provider.Provinces(ctx)
	if err != nil {
		return fmt.Errorf("load provinces: %w", err)
	}

	c.mu.Lock()
	c.provinces = list
	c.mu.Unlock()
	return nil
}

// provinceKnown reports whether code may be selected as a province. Any code
// is accepted before the province list has loaded.
func (c *Cascade) provinceKnown(code int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return code == 0 || len(c.provinces) == 0 || contains(c.provinces, code)
}

// districtKnown reports whether code is a district of the current province.
func (c *Cascade) districtKnown(code int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return code == 0 || contains(c.districts, code)
}

// SelectProvince chooses a province (0 clears it) and loads its districts.
// An unknown code is rejected before any in-flight fetch is superseded.
func (c *Cascade) SelectProvince(ctx context.Context, code int) error {
	if !c.provinceKnown(code) {
		return ErrUnknownDivision
	}
	ticket := c.districtSlot.Begin()
	c.wardSlot.Invalidate()

	if !c.districtSlot.Apply(ticket, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.sel = Selection{Province: code}
		c.districts = nil
		c.wards = nil
	}) {
		return ErrSuperseded
	}
	if code == 0 {
		return nil
	}

	list, err := c.provider.Districts(ctx, code)
	if err != nil {
		return fmt.Errorf("load districts of %d: %w", code, err)
	}

	if !c.districtSlot.Apply(ticket, func() {
		c.mu.Lock()
		c.districts = list
		c.mu.Unlock()
	}) {
		return ErrSuperseded
	}
	return nil
}

// SelectDistrict chooses a district of the current province (0 clears it)
// and loads its wards.
func (c *Cascade) SelectDistrict(ctx context.Context, code int) error {
	if !c.districtKnown(code) {
		return ErrUnknownDivision
	}
	ticket := c.wardSlot.Begin()

	// The province may have changed since districtKnown.
	var unknown bool
	if !c.wardSlot.Apply(ticket, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if code != 0 && !contains(c.districts, code) {
			unknown = true
			return
		}
		c.sel.District = code
		c.sel.Ward = 0
		c.wards = nil
	}) {
		return ErrSuperseded
	}
	if unknown {
		return ErrUnknownDivision
	}
	if code == 0 {
		return nil
	}

	list, err := c.provider.Wards(ctx, code)
	if err != nil {
		return fmt.Errorf("load wards of %d: %w", code, err)
	}

	if !c.wardSlot.Apply(ticket, func() {
		c.mu.Lock()
		c.wards = list
		c.mu.Unlock()
	}) {
		return ErrSuperseded
	}
	return nil
}

// SelectWard chooses a ward of the current district (0 clears it).
func (c *Cascade) SelectWard(code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if code != 0 && !contains(c.wards, code) {
		return ErrUnknownDivision
	}
	c.sel.Ward = code
	return nil
}

// Restore replays a saved selection level by level, stopping at the first
// level that can no longer be resolved.
func (c *Cascade) Restore(ctx context.Context, sel Selection) error {
	if err := c.LoadProvinces(ctx); err != nil {
		return err
	}
	if sel.Province == 0 {
		return nil
	}
	if err := c.SelectProvince(ctx, sel.Province); err != nil {
		return err
	}
	if sel.District == 0 {
		return nil
	}
	if err := c.SelectDistrict(ctx, sel.District); err != nil {
		return err
	}
	if sel.Ward == 0 {
		return nil
	}
	return c.SelectWard(sel.Ward)
}

// Selection returns the chosen codes.
func (c *Cascade) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// View copies the current state for rendering.
func (c *Cascade) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Provinces: append([]Division(nil), c.provinces...),
		Districts: append([]Division(nil), c.districts...),
		Wards:     append([]Division(nil), c.wards...),
		Province:  find(c.provinces, c.sel.Province),
		District:  find(c.districts, c.sel.District),
		Ward:      find(c.wards, c.sel.Ward),
	}
}

// Complete reports whether province, district and ward are all resolved.
func (c *Cascade) Complete() bool {
	return c.View().Complete()
}

// Address joins the chosen names as "ward, district, province".
func (c *Cascade) Address() (string, error) {
	v := c.View()
	if !v.Complete() {
		return "", ErrIncomplete
	}
	return v.Ward.Name + ", " + v.District.Name + ", " + v.Province.Name, nil
}

func contains(list []Division, code int) bool {
	return find(list, code).Code != 0
}

func find(list []Division, code int) Division {
	if code == 0 {
		return Division{}
	}
	for _, d := range list {
		if d.Code == code {
			return d
		}
	}
	return Division{}
}
