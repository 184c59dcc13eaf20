package dimensional_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
)

func TestValidate_SingleCurrentRow_OK(t *testing.T) {
	rows := []dimensional.Row{currentRow(1, "btc", nil, d(2023, 1, 1))}
	assert.NoError(t, dimensional.Validate(rows))
}

func TestValidate_ClosedThenCurrent_Tiles(t *testing.T) {
	rows := []dimensional.Row{
		closedRow(1, "1", alice("a@x.com"), d(2023, 1, 1), d(2023, 3, 1)),
		currentRow(2, "1", alice("b@x.com"), d(2023, 3, 1)),
	}
	assert.NoError(t, dimensional.Validate(rows))
}

func TestValidate_GapBetweenVersions_Rejected(t *testing.T) {
	// Closed at March 1 but successor starts March 5: four untiled days.
	rows := []dimensional.Row{
		closedRow(1, "1", alice("a@x.com"), d(2023, 1, 1), d(2023, 3, 1)),
		currentRow(2, "1", alice("b@x.com"), d(2023, 3, 5)),
	}
	assert.Error(t, dimensional.Validate(rows))
}

func TestValidate_TwoCurrentRows_Rejected(t *testing.T) {
	rows := []dimensional.Row{
		currentRow(1, "1", alice("a@x.com"), d(2023, 1, 1)),
		currentRow(2, "1", alice("b@x.com"), d(2023, 3, 1)),
	}
	err := dimensional.Validate(rows)
	assert.ErrorIs(t, err, dimensional.ErrCorruptDimension)
}

func TestValidate_RetiredKey_NoCurrentRow_OK(t *testing.T) {
	// A close-missing run leaves the key fully closed. Legal.
	rows := []dimensional.Row{
		closedRow(1, "1", alice("a@x.com"), d(2023, 1, 1), d(2023, 3, 1)),
	}
	assert.NoError(t, dimensional.Validate(rows))
}

func TestValidate_ClosedRowEndingAtInfinity_Rejected(t *testing.T) {
	rows := []dimensional.Row{
		closedRow(1, "1", alice("a@x.com"), d(2023, 1, 1), dimensional.Infinity()),
		currentRow(2, "1", alice("b@x.com"), d(2023, 3, 1)),
	}
	assert.Error(t, dimensional.Validate(rows))
}

func TestValidate_EmptyInterval_SameDayChange_OK(t *testing.T) {
	// A same-day correction produces a closed [d, d) row. Still tiles.
	rows := []dimensional.Row{
		closedRow(1, "1", alice("a@x.com"), d(2023, 3, 1), d(2023, 3, 1)),
		currentRow(2, "1", alice("b@x.com"), d(2023, 3, 1)),
	}
	assert.NoError(t, dimensional.Validate(rows))
}

func TestCurrentRows_FiltersAndNormalizes(t *testing.T) {
	rows := []dimensional.Row{
		closedRow(1, "BTC", nil, d(2023, 1, 1), d(2023, 3, 1)),
		currentRow(2, "BTC", nil, d(2023, 3, 1)),
		currentRow(3, "eth", nil, d(2023, 1, 1)),
	}

	current := dimensional.CurrentRows(rows)
	assert.Len(t, current, 2)
	assert.Equal(t, dimensional.SurrogateKey(2), current["btc"].SK)
	assert.Equal(t, dimensional.SurrogateKey(3), current["eth"].SK)
}
