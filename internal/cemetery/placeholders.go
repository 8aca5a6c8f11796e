package cemetery

import "time"

// PlaceholderTombstones is the fixed set served by TombstoneRegistry.List
// when no registry exists yet, so a fresh install has something to show.
// Every record has Placeholder set.
func PlaceholderTombstones() []*Tombstone {
	return []*Tombstone{
		{
			ID:           "regex-validator",
			Name:         "RegEx captcha parser",
			CauseOfDeath: "Killed by slider captchas",
			Epitaph:      "It solved 99% of captchas, until the captchas learned to evolve",
			Tags:         []string{"rust", "validator"},
			OriginalPath: "src/utils/regex-validator.ts",
			Language:     strPtr("Rust"),
			LineCount:    256,
			DiedAt:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Placeholder:  true,
		},
		{
			ID:           "vue2-admin",
			Name:         "Vue 2.0 admin console",
			CauseOfDeath: "Vue 3 shipped",
			Epitaph:      "The Composition API will never enslave us",
			Tags:         []string{"vue", "admin"},
			OriginalPath: "packages/admin/src/main.ts",
			Language:     strPtr("Vue"),
			LineCount:    1542,
			DiedAt:       time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC),
			Placeholder:  true,
		},
		{
			ID:           "jquery-branch",
			Name:         "jQuery branch",
			CauseOfDeath: "IE11 finally died",
			Epitaph:      "RIP IE, you are finally gone",
			Tags:         []string{"javascript", "jquery"},
			OriginalPath: "src/legacy/jquery-bridge.js",
			Language:     strPtr("JavaScript"),
			LineCount:    892,
			DiedAt:       time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC),
			Placeholder:  true,
		},
	}
}

func strPtr(s string) *string { return &s }
