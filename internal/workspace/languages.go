package workspace

import (
	"path/filepath"
	"strings"
)

var extensionLanguages = map[string]string{
	".go":    "Go",
	".rs":    "Rust",
	".py":    "Python",
	".js":    "JavaScript",
	".mjs":   "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".vue":   "Vue",
	".java":  "Java",
	".kt":    "Kotlin",
	".swift": "Swift",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".rb":    "Ruby",
	".php":   "PHP",
	".sh":    "Shell",
	".lua":   "Lua",
	".ex":    "Elixir",
	".scala": "Scala",
	".sql":   "SQL",
}

// languageOf returns the language of a source file, or "" when the
// extension is not recognised.
func languageOf(name string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(name))]
}
