// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"fmt"
	"math"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// Language selects the direction and guidance tables.
type Language string

const (
	English Language = "en"
	Arabic  Language = "ar"
)

// ParseLanguage accepts "en" or "ar".
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case English, Arabic:
		return Language(s), nil
	default:
		return "", fmt.Errorf("unsupported language %q (want en or ar)", s)
	}
}

var cardinalNames = map[Language][8]string{
	English: {"N", "NE", "E", "SE", "S", "SW", "W", "NW"},
	Arabic:  {"شمال", "شمال شرق", "شرق", "جنوب شرق", "جنوب", "جنوب غرب", "غرب", "شمال غرب"},
}

// CardinalDirection maps a heading to one of 8 sectors of 45° centred on N, NE, ... NW.
func CardinalDirection(heading float64, lang Language) string {
	names, ok := cardinalNames[lang]
	if !ok {
		names = cardinalNames[English]
	}
	index := int(math.Round(geo.Normalize360(heading)/45)) % 8
	return names[index]
}

// Guidance is a coarse hint about how far the device is from the target bearing.
type Guidance string

const (
	GuidanceFacing      Guidance = "facing"
	GuidanceClose       Guidance = "close"
	GuidanceKeepTurning Guidance = "keep_turning"
	GuidanceTurnAround  Guidance = "turn_around"
)

// GuidanceFor classifies absAngle (degrees off target).
func GuidanceFor(absAngle, threshold float64) Guidance {
	switch {
	case absAngle < threshold:
		return GuidanceFacing
	case absAngle < 45:
		return GuidanceClose
	case absAngle < 90:
		return GuidanceKeepTurning
	default:
		return GuidanceTurnAround
	}
}

var guidanceMessages = map[Language]map[Guidance]string{
	English: {
		GuidanceFacing:      "You are facing the Qibla",
		GuidanceClose:       "Very close, adjust slightly",
		GuidanceKeepTurning: "Keep turning",
		GuidanceTurnAround:  "Point the phone toward the Kaaba",
	},
	Arabic: {
		GuidanceFacing:      "أنت تواجه القبلة الآن!",
		GuidanceClose:       "قريب جداً - اضبط قليلاً",
		GuidanceKeepTurning: "استمر في التوجيه",
		GuidanceTurnAround:  "وجه الهاتف نحو الكعبة الشريفة",
	},
}

// Message returns the localized text for g.
func (g Guidance) Message(lang Language) string {
	if msgs, ok := guidanceMessages[lang]; ok {
		return msgs[g]
	}
	return guidanceMessages[English][g]
}
