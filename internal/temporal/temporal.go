// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package temporal computes recency and urgency decay scores for content
// items. Scoring is a pure function of the publication time and a
// caller-supplied clock, so it can run at write time and again at read time
// without inconsistency.
package temporal

import (
	"math"
	"time"

	"github.com/pdiddy/signal-engine/pkg/types"
)

const (
	// recencyWindowHours is the linear recency window (seven days).
	recencyWindowHours = 7 * 24

	// urgencyHalfLifeHours controls the exponential urgency decay.
	urgencyHalfLifeHours = 48

	// scoreFloor keeps decay scores strictly positive so tie-breaking
	// stays stable.
	scoreFloor = 0.01

	breakingWindow = 2 * time.Hour
	recentWindow   = 24 * time.Hour
	normalWindow   = 7 * 24 * time.Hour
)

// Score computes the temporal score for an item published at publishedAt as
// seen at now. Future timestamps are treated as age zero.
func Score(publishedAt, now time.Time) types.TemporalScore {
	age := now.Sub(publishedAt)
	if age < 0 {
		age = 0
	}
	ageHours := age.Hours()

	recency := 1.0 - ageHours/recencyWindowHours
	if recency < scoreFloor {
		recency = scoreFloor
	}

	urgency := math.Exp(-ageHours / urgencyHalfLifeHours)
	if urgency < scoreFloor {
		urgency = scoreFloor
	}
	// Fresh-item bonuses apply after the floor clamp.
	switch {
	case age <= breakingWindow:
		urgency *= 1.5
	case age <= recentWindow:
		urgency *= 1.2
	}
	if urgency > 1.0 {
		urgency = 1.0
	}

	return types.TemporalScore{
		RecencyScore: recency,
		UrgencyScore: urgency,
		TimeCategory: Categorize(age),
	}
}

// Categorize maps an item age to its discrete time category.
func Categorize(age time.Duration) types.TimeCategory {
	switch {
	case age <= breakingWindow:
		return types.TimeBreaking
	case age <= recentWindow:
		return types.TimeRecent
	case age > normalWindow:
		return types.TimeHistorical
	default:
		return types.TimeNormal
	}
}

// BreakingWindow returns the age cutoff for the breaking category. The cache
// manager uses it to classify query TTLs.
func BreakingWindow() time.Duration {
	return breakingWindow
}
