package geo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	provinces []Division
	districts map[int][]Division
	wards     map[int][]Division
	gates     map[int]chan struct{}
	err       error
	calls     int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		provinces: []Division{{Code: 1, Name: "Hà Nội"}, {Code: 79, Name: "Hồ Chí Minh"}},
		districts: map[int][]Division{
			1:  {{Code: 1, Name: "Ba Đình"}, {Code: 2, Name: "Hoàn Kiếm"}},
			79: {{Code: 760, Name: "Quận 1"}},
		},
		wards: map[int][]Division{
			1:   {{Code: 1, Name: "Phúc Xá"}},
			2:   {{Code: 37, Name: "Hàng Bạc"}},
			760: {{Code: 26734, Name: "Bến Nghé"}},
		},
		gates: map[int]chan struct{}{},
	}
}

func (f *fakeProvider) gate(code int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[code] = ch
	return ch
}

func (f *fakeProvider) wait(code int) {
	f.mu.Lock()
	f.calls++
	ch := f.gates[code]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeProvider) Provinces(ctx context.Context) ([]Division, error) {
	f.wait(-1)
	return f.provinces, f.err
}

func (f *fakeProvider) Districts(ctx context.Context, province int) ([]Division, error) {
	f.wait(province)
	return f.districts[province], f.err
}

func (f *fakeProvider) Wards(ctx context.Context, district int) ([]Division, error) {
	f.wait(district)
	return f.wards[district], f.err
}

func completeCascade(t *testing.T, p Provider) *Cascade {
	t.Helper()
	c := NewCascade(p)
	ctx := context.Background()
	require.NoError(t, c.LoadProvinces(ctx))
	require.NoError(t, c.SelectProvince(ctx, 1))
	require.NoError(t, c.SelectDistrict(ctx, 2))
	require.NoError(t, c.SelectWard(37))
	return c
}

func TestCascadeCompleteAddress(t *testing.T) {
	c := completeCascade(t, newFakeProvider())

	assert.True(t, c.Complete())
	addr, err := c.Address()
	require.NoError(t, err)
	assert.Equal(t, "Hàng Bạc, Hoàn Kiếm, Hà Nội", addr)
	assert.Equal(t, Selection{Province: 1, District: 2, Ward: 37}, c.Selection())
}

func TestCascadeProvinceChangeClearsBelow(t *testing.T) {
	c := completeCascade(t, newFakeProvider())

	require.NoError(t, c.SelectProvince(context.Background(), 79))

	v := c.View()
	assert.Equal(t, "Hồ Chí Minh", v.Province.Name)
	assert.Zero(t, v.District.Code)
	assert.Zero(t, v.Ward.Code)
	assert.Empty(t, v.Wards)
	assert.Equal(t, []Division{{Code: 760, Name: "Quận 1"}}, v.Districts)
	assert.False(t, c.Complete())

	_, err := c.Address()
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestCascadeDistrictChangeClearsWard(t *testing.T) {
	c := completeCascade(t, newFakeProvider())

	require.NoError(t, c.SelectDistrict(context.Background(), 1))

	sel := c.Selection()
	assert.Equal(t, 1, sel.Province)
	assert.Equal(t, 1, sel.District)
	assert.Zero(t, sel.Ward)
	assert.Equal(t, []Division{{Code: 1, Name: "Phúc Xá"}}, c.View().Wards)
}

func TestCascadeRejectsUnknownCodes(t *testing.T) {
	c := completeCascade(t, newFakeProvider())
	ctx := context.Background()

	assert.ErrorIs(t, c.SelectWard(26734), ErrUnknownDivision)
	assert.ErrorIs(t, c.SelectDistrict(ctx, 760), ErrUnknownDivision)
	assert.ErrorIs(t, c.SelectProvince(ctx, 999), ErrUnknownDivision)

	assert.Equal(t, Selection{Province: 1, District: 2, Ward: 37}, c.Selection())
}

func TestCascadeUnknownProvinceKeepsPendingFetch(t *testing.T) {
	p := newFakeProvider()
	c := NewCascade(p)
	ctx := context.Background()
	require.NoError(t, c.LoadProvinces(ctx))

	gate := p.gate(1)
	pending := make(chan error, 1)
	go func() { pending <- c.SelectProvince(ctx, 1) }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 2
	}, timeout, tick)

	assert.ErrorIs(t, c.SelectProvince(ctx, 999), ErrUnknownDivision)
	close(gate)

	require.NoError(t, <-pending)
	v := c.View()
	assert.Equal(t, 1, v.Province.Code)
	assert.Len(t, v.Districts, 2)
}

func TestCascadeUnknownDistrictKeepsPendingFetch(t *testing.T) {
	p := newFakeProvider()
	c := NewCascade(p)
	ctx := context.Background()
	require.NoError(t, c.LoadProvinces(ctx))
	require.NoError(t, c.SelectProvince(ctx, 1))

	gate := p.gate(2)
	pending := make(chan error, 1)
	go func() { pending <- c.SelectDistrict(ctx, 2) }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 3
	}, timeout, tick)

	assert.ErrorIs(t, c.SelectDistrict(ctx, 760), ErrUnknownDivision)
	close(gate)

	require.NoError(t, <-pending)
	v := c.View()
	assert.Equal(t, 2, v.District.Code)
	assert.Equal(t, []Division{{Code: 37, Name: "Hàng Bạc"}}, v.Wards)
}

func TestCascadeStaleDistrictResponseDropped(t *testing.T) {
	p := newFakeProvider()
	c := NewCascade(p)
	ctx := context.Background()
	require.NoError(t, c.LoadProvinces(ctx))

	gate := p.gate(1)
	slow := make(chan error, 1)
	go func() { slow <- c.SelectProvince(ctx, 1) }()

	// Let the slow request reach the provider before superseding it.
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 2
	}, timeout, tick)

	require.NoError(t, c.SelectProvince(ctx, 79))
	close(gate)

	assert.ErrorIs(t, <-slow, ErrSuperseded)

	v := c.View()
	assert.Equal(t, 79, v.Province.Code)
	assert.Equal(t, []Division{{Code: 760, Name: "Quận 1"}}, v.Districts)
}

func TestCascadeStaleWardResponseDroppedAfterProvinceChange(t *testing.T) {
	p := newFakeProvider()
	c := NewCascade(p)
	ctx := context.Background()
	require.NoError(t, c.LoadProvinces(ctx))
	require.NoError(t, c.SelectProvince(ctx, 1))

	gate := p.gate(2)
	slow := make(chan error, 1)
	go func() { slow <- c.SelectDistrict(ctx, 2) }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 3
	}, timeout, tick)

	require.NoError(t, c.SelectProvince(ctx, 79))
	close(gate)

	assert.ErrorIs(t, <-slow, ErrSuperseded)
	v := c.View()
	assert.Empty(t, v.Wards)
	assert.Zero(t, v.District.Code)
}

func TestCascadeRestore(t *testing.T) {
	c := NewCascade(newFakeProvider())

	require.NoError(t, c.Restore(context.Background(), Selection{Province: 79, District: 760, Ward: 26734}))

	addr, err := c.Address()
	require.NoError(t, err)
	assert.Equal(t, "Bến Nghé, Quận 1, Hồ Chí Minh", addr)
}

func TestCascadeProviderError(t *testing.T) {
	p := newFakeProvider()
	c := NewCascade(p)
	ctx := context.Background()
	require.NoError(t, c.LoadProvinces(ctx))

	p.err = errors.New("boom")
	err := c.SelectProvince(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load districts")

	// The selection itself stands; only the child list is missing.
	assert.Equal(t, 1, c.Selection().Province)
	assert.Empty(t, c.View().Districts)
}
