package reconciliation_test

import (
	"context"
	"testing"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func groupCode(g integration.GroupRecord) string        { return g.Code }
func groupDescription(g integration.GroupRecord) string { return g.Description }

func TestBuildDictionary(t *testing.T) {
	d := reconciliation.BuildDictionary([]integration.GroupRecord{
		{Code: " G1 ", Description: "Lubricants"},
		{Code: "", Description: "orphan"},
		{Code: "G2", Description: "Filters"},
		{Code: "G2", Description: "Air filters"},
	}, groupCode)

	assert.Len(t, d, 2)

	rec, ok := d.Lookup("G1")
	require.True(t, ok)
	assert.Equal(t, "Lubricants", rec.Description)

	rec, ok = d.Lookup("  G2")
	require.True(t, ok)
	assert.Equal(t, "Air filters", rec.Description, "last record wins")

	_, ok = d.Lookup("G9")
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	d := reconciliation.BuildDictionary([]integration.GroupRecord{
		{Code: "G1", Description: " Lubricants "},
		{Code: "G3", Description: "   "},
	}, groupCode)

	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "known code", code: "G1", want: "Lubricants"},
		{name: "padded code", code: " G1 ", want: "Lubricants"},
		{name: "unknown code falls back", code: " G9 ", want: "G9"},
		{name: "blank description falls back", code: "G3", want: "G3"},
		{name: "empty code", code: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconciliation.Describe(d, tt.code, groupDescription))
		})
	}
}

func TestDictionaryResolver_Resolve(t *testing.T) {
	remote := &fakeRemote{
		groups:          []integration.GroupRecord{{Code: "G1", Description: "Lubricants"}},
		capacities:      []integration.CapacityRecord{{Code: "C1", Description: "1 liter"}},
		stockIndicators: []integration.StockIndicatorRecord{{Key: "S", Description: "In stock"}},
	}

	dicts := reconciliation.NewDictionaryResolver(remote, nil).Resolve(context.Background())

	assert.Equal(t, "Lubricants", dicts.GroupDescription("G1"))
	assert.Equal(t, "1 liter", dicts.CapacityDescription("C1"))
	assert.Equal(t, "In stock", dicts.StockIndicatorDescription(" S "))
	assert.Equal(t, "X", dicts.StockIndicatorDescription("X"))
}

func TestDictionaryResolver_FetchFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	remote := &fakeRemote{
		groupsErr:  errBoom,
		capacities: []integration.CapacityRecord{{Code: "C1", Description: "1 liter"}},
	}

	dicts := reconciliation.NewDictionaryResolver(remote, zap.New(core)).Resolve(context.Background())

	assert.Empty(t, dicts.Groups)
	assert.Equal(t, "G1", dicts.GroupDescription("G1"))
	assert.Equal(t, "1 liter", dicts.CapacityDescription("C1"), "other dictionaries still resolve")

	entries := logs.FilterMessage("Dictionary fetch failed, falling back to raw codes").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "product_groups", entries[0].ContextMap()["dictionary"])
}
