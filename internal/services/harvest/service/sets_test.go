package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"tulflow/internal/services/harvest/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolve_AllSetsWins(t *testing.T) {
	cat := &mockCatalog{}
	got, err := SetEnumerator{Catalog: cat}.Resolve(context.Background(), "http://h/oai", domain.SetSelection{
		AllSets:  true,
		Included: domain.SetList{"a"},
		Excluded: domain.SetList{"x"},
	})
	require.NoError(t, err)
	require.Empty(t, got)
	cat.AssertNotCalled(t, "ListSets", mock.Anything, mock.Anything)
}

func TestResolve_IncludedShortCircuits(t *testing.T) {
	cat := &mockCatalog{}
	got, err := SetEnumerator{Catalog: cat}.Resolve(context.Background(), "http://h/oai", domain.SetSelection{
		Included: domain.SetList{"a", "b", "c"},
		Excluded: domain.SetList{"x", "y", "z"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, got)
	cat.AssertNumberOfCalls(t, "ListSets", 0)
}

func TestResolve_ExcludedUsesCatalog(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("ListSets", mock.Anything, "http://h/oai").Return([]string{"a", "b", "x", "y", "z", "a"}, nil).Once()

	got, err := SetEnumerator{Catalog: cat}.Resolve(context.Background(), "http://h/oai", domain.SetSelection{
		Excluded: domain.SetList{"x", "y", "z"},
	})
	require.NoError(t, err)
	sort.Strings(got)
	require.Equal(t, []string{"a", "b"}, got)
	cat.AssertExpectations(t)
}

func TestResolve_ExcludedEmptiesCatalog(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("ListSets", mock.Anything, mock.Anything).Return([]string{"x", "y"}, nil)

	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	got, err := SetEnumerator{Catalog: cat, Log: &lg}.Resolve(context.Background(), "e", domain.SetSelection{
		Excluded: domain.SetList{"x", "y", "z"},
	})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"excluded":["x","y","z"]`)
}

func TestResolve_ScalarExclusion(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("ListSets", mock.Anything, mock.Anything).Return([]string{"blacklight", "rapid_print_books"}, nil)

	var sel domain.SetSelection
	require.NoError(t, sel.Excluded.UnmarshalJSON([]byte(`"rapid_print_books"`)))
	got, err := SetEnumerator{Catalog: cat}.Resolve(context.Background(), "e", sel)
	require.NoError(t, err)
	require.Equal(t, []string{"blacklight"}, got)
}

func TestResolve_NothingConfigured(t *testing.T) {
	cat := &mockCatalog{}
	got, err := SetEnumerator{Catalog: cat}.Resolve(context.Background(), "e", domain.SetSelection{})
	require.NoError(t, err)
	require.Empty(t, got)
	cat.AssertNotCalled(t, "ListSets", mock.Anything, mock.Anything)
}

func TestResolve_CatalogError(t *testing.T) {
	cat := &mockCatalog{}
	boom := errors.New("catalog down")
	cat.On("ListSets", mock.Anything, mock.Anything).Return(nil, boom)
	_, err := SetEnumerator{Catalog: cat}.Resolve(context.Background(), "e", domain.SetSelection{Excluded: domain.SetList{"x"}})
	require.ErrorIs(t, err, boom)
}

func TestIncrementalWindow(t *testing.T) {
	last := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 11, 8, 30, 15, 0, time.FixedZone("EST", -5*3600))
	w := IncrementalWindow(last, 6*time.Hour, now)
	if w.From != "2024-03-10T06:00:00Z" || w.Until != "2024-03-11T13:30:15Z" {
		t.Fatalf("window = %+v", w)
	}
	if AdvanceMarker(domain.RunCounts{Deleted: 5}) || !AdvanceMarker(domain.RunCounts{Updated: 1}) {
		t.Fatal("marker moves only on updates")
	}
	if !strings.HasSuffix(w.Until, "Z") {
		t.Fatal("until must be UTC")
	}
}
