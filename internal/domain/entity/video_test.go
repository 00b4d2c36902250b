package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRectangleNormalizes(t *testing.T) {
	// Corner order must not matter: all four drag directions yield the
	// same rectangle.
	want := Rectangle{X: 10, Y: 20, Width: 30, Height: 40}

	assert.Equal(t, want, NewRectangle(10, 20, 40, 60))
	assert.Equal(t, want, NewRectangle(40, 60, 10, 20))
	assert.Equal(t, want, NewRectangle(40, 20, 10, 60))
	assert.Equal(t, want, NewRectangle(10, 60, 40, 20))
}

func TestRectangleClamp(t *testing.T) {
	cases := []struct {
		name string
		in   Rectangle
		want Rectangle
	}{
		{
			"fully inside",
			Rectangle{X: 10, Y: 10, Width: 50, Height: 50},
			Rectangle{X: 10, Y: 10, Width: 50, Height: 50},
		},
		{
			"overhangs right and bottom",
			Rectangle{X: 60, Y: 60, Width: 80, Height: 80},
			Rectangle{X: 60, Y: 60, Width: 40, Height: 40},
		},
		{
			"negative origin",
			Rectangle{X: -10, Y: -20, Width: 50, Height: 50},
			Rectangle{X: 0, Y: 0, Width: 40, Height: 30},
		},
		{
			"entirely outside",
			Rectangle{X: 200, Y: 200, Width: 50, Height: 50},
			Rectangle{X: 100, Y: 100, Width: 0, Height: 0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Clamp(100, 100)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRectangleArea(t *testing.T) {
	assert.Equal(t, 2500, Rectangle{Width: 50, Height: 50}.Area())
	assert.Zero(t, Rectangle{Width: 0, Height: 50}.Area())
}
