package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sushiorders/model"
)

func TestTableSuffix(t *testing.T) {
	tests := map[string]string{
		"2022": "A",
		"2023": "B",
		"2024": "C",
		"2025": "A",
		"2026": "B",
		"2021": "C",
		"2019": "A",
		"2020": "B",
	}
	for year, want := range tests {
		got, err := TableSuffix(year)
		require.NoError(t, err, year)
		assert.Equal(t, want, got, year)
	}

	_, err := TableSuffix("令和7")
	assert.Error(t, err)
}

func TestOrderDetailsTable(t *testing.T) {
	name, err := OrderDetailsTable("2025")
	require.NoError(t, err)
	assert.Equal(t, "OrderDetails-A", name)
}

func TestReceptionNumbers(t *testing.T) {
	details := []model.OrderDetail{
		{ReceptionNumber: "R1"}, {ReceptionNumber: ""}, {ReceptionNumber: "R2"}, {ReceptionNumber: "R1"},
	}
	assert.Equal(t, []string{"R1", "R2"}, ReceptionNumbers(details))
}
