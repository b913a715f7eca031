package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
)

func TestAccrualMultiplier(t *testing.T) {
	testCases := []struct {
		name     string
		level    uint8
		expected float64
	}{
		{name: "level 1 earns half", level: 1, expected: 0.5},
		{name: "level 2 earns full", level: 2, expected: 1.0},
		{name: "level 3 earns one and a half", level: 3, expected: 1.5},
		{name: "unknown level falls back to level 1", level: 0, expected: 0.5},
		{name: "out of range level falls back to level 1", level: 9, expected: 0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, model.AccrualMultiplier(tc.level))
		})
	}
}

func TestLevelForLifetime(t *testing.T) {
	testCases := []struct {
		name     string
		lifetime int64
		expected uint8
	}{
		{name: "zero lifetime is level 1", lifetime: 0, expected: 1},
		{name: "exactly at level 2 threshold stays level 1", lifetime: 1000, expected: 1},
		{name: "one point past the threshold is level 2", lifetime: 1001, expected: 2},
		{name: "exactly at level 3 threshold stays level 2", lifetime: 5000, expected: 2},
		{name: "one point past the top threshold is level 3", lifetime: 5001, expected: 3},
		{name: "far past the top threshold stays level 3", lifetime: 1_000_000, expected: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, model.LevelForLifetime(tc.lifetime))
		})
	}
}
