package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedRow_Validate(t *testing.T) {
	row := ParsedRow{Name: "Keypad", Quantity: 1}
	require.NoError(t, row.Validate())

	row.Name = ""
	assert.ErrorContains(t, row.Validate(), "name")

	row = ParsedRow{Name: "Keypad", Quantity: 0}
	assert.ErrorContains(t, row.Validate(), "quantity")
}
