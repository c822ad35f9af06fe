package database

import "strings"

// LikeEscape is the escape character paired with EscapeLike. Use it as
// `LIKE ? ESCAPE '!'`.
const LikeEscape = "!"

var likeReplacer = strings.NewReplacer(LikeEscape, LikeEscape+LikeEscape, "%", LikeEscape+"%", "_", LikeEscape+"_")

// EscapeLike escapes the LIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
