package version

import "fmt"

var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "None"
)

func Get() string {
	if GitHash != "" {
		h := GitHash
		if len(h) > 7 {
			h = h[:7]
		}

		return fmt.Sprintf("%s-%s", Version, h)
	}

	return Version
}

func Printer() {
	fmt.Println("Version:         ", Get())
	fmt.Println("Git Branch:      ", GitBranch)
	fmt.Println("Git Commit:      ", GitHash)
	fmt.Println("Build Time (UTC):", BuildTS)
}
