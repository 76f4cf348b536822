package scanner

import "strings"

// systemFolders are path components that carry no organizational intent.
var systemFolders = map[string]struct{}{
	"Users":    {},
	"Pictures": {},
	"Photos":   {},
}

// meaningfulFolders extracts up to the last three path components a user
// plausibly chose themselves, skipping system folders and hidden entries.
func meaningfulFolders(path string) []string {
	if path == "" {
		return nil
	}
	var folders []string
	for part := range strings.SplitSeq(path, "/") {
		if part == "" || strings.HasPrefix(part, ".") {
			continue
		}
		if _, system := systemFolders[part]; system {
			continue
		}
		folders = append(folders, part)
	}
	if len(folders) > 3 {
		folders = folders[len(folders)-3:]
	}
	return folders
}

// organizationScore rates how well an entry is already filed, 0-100:
// album membership 30 (+10 when in more than one album), folder structure
// 15 (+10 at two levels, +5 at three), tags 10 (+10 at three or more), and
// path depth up to 10.
func organizationScore(albums, folders, tags []string, path string) float64 {
	score := 0.0

	if len(albums) > 0 {
		score += 30
		if len(albums) > 1 {
			score += 10
		}
	}

	if len(folders) > 0 {
		score += 15
		if len(folders) >= 2 {
			score += 10
		}
		if len(folders) >= 3 {
			score += 5
		}
	}

	if len(tags) > 0 {
		score += 10
		if len(tags) >= 3 {
			score += 10
		}
	}

	if strings.Contains(path, "/") {
		depth := strings.Count(path, "/")
		if depth >= 4 {
			score += 10
		} else if depth >= 3 {
			score += 5
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}
