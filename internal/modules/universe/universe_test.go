package universe

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvestmentPeriod(t *testing.T) {
	assert.Equal(t, ClassShort, InvestmentPeriod(1, 0))
	assert.Equal(t, ClassShort, InvestmentPeriod(1, 5))
	assert.Equal(t, ClassLong, InvestmentPeriod(1, 6))
	assert.Equal(t, ClassLong, InvestmentPeriod(0, 18))
	assert.Equal(t, ClassLong, InvestmentPeriod(3, 0))
}

func TestTimeFrame(t *testing.T) {
	start, end := TimeFrame(1, 0)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = TimeFrame(3, 6)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestResolveHorizon(t *testing.T) {
	assert.Equal(t, domain.HorizonShort, ResolveHorizon(ClassShort, 5))
	assert.Equal(t, domain.HorizonLong, ResolveHorizon(ClassLong, 0))
	assert.Equal(t, domain.HorizonShort, ResolveHorizon(ClassMixed, 1))
	assert.Equal(t, domain.HorizonLong, ResolveHorizon(ClassMixed, 2))
}

func TestQuotas(t *testing.T) {
	c, m, e := Quotas(12)
	assert.Equal(t, []int{3, 6, 3}, []int{c, m, e})

	c, m, e = Quotas(1)
	assert.Equal(t, []int{1, 1, 1}, []int{c, m, e})

	c, m, e = Quotas(10)
	assert.Equal(t, []int{3, 5, 2}, []int{c, m, e})
}

func TestLoadCatalog_Embedded(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Filter(ClassShort))
	assert.NotEmpty(t, c.Filter(ClassLong))

	tsla, ok := c.Lookup("TSLA")
	require.True(t, ok)
	assert.Equal(t, ClassShort, tsla.Type)
}

func TestLoadCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
instruments:
  - {symbol: "AAA", price: 10, type: short}
  - {symbol: "BBB", price: 100, type: long}
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.Instruments, 2)
	assert.Len(t, c.Filter(ClassMixed), 2)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte(`instruments: []`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`instruments: [{symbol: "A", price: 1, type: weird}]`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`instruments: [{symbol: "A", price: 1, type: short}, {symbol: "A", price: 2, type: long}]`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`instruments: [{symbol: "A", price: 0, type: short}]`))
	assert.Error(t, err)
}

func TestSelect_DeterministicAndFiltered(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	s := NewSelector(c, zerolog.Nop())

	a := s.Select(ClassShort, 12, rand.New(rand.NewSource(7)))
	b := s.Select(ClassShort, 12, rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
	assert.Len(t, a, 12)

	seen := map[string]bool{}
	for _, sym := range a {
		inst, ok := c.Lookup(sym)
		require.True(t, ok)
		assert.Equal(t, ClassShort, inst.Type)
		assert.False(t, seen[sym], "duplicate %s", sym)
		seen[sym] = true
	}
}

func TestSelect_BucketMix(t *testing.T) {
	c, err := ParseCatalog([]byte(`
instruments:
  - {symbol: "C1", price: 5, type: short}
  - {symbol: "C2", price: 6, type: short}
  - {symbol: "M1", price: 50, type: short}
  - {symbol: "M2", price: 60, type: short}
  - {symbol: "E1", price: 500, type: short}
  - {symbol: "L1", price: 50, type: long}
`))
	require.NoError(t, err)
	s := NewSelector(c, zerolog.Nop())

	got := s.Select(ClassShort, 3, rand.New(rand.NewSource(1)))
	require.Len(t, got, 3)
	assert.NotContains(t, got, "L1")
}

func TestSelect_SmallCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`instruments: [{symbol: "A", price: 10, type: long}]`))
	require.NoError(t, err)

	got := NewSelector(c, zerolog.Nop()).Select(ClassLong, 12, rand.New(rand.NewSource(1)))
	assert.Equal(t, []string{"A"}, got)
}
