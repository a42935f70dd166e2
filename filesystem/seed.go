package filesystem

import "github.com/brettbedarf/sandboxfs"

// Fixed seed content every new session starts with
const (
	ReadmeContent  = "This is a project directory."
	NotesContent   = "My secret notes."
	WelcomeContent = `echo "Welcome to the CLI Sandbox!"`
)

// DefaultSeed returns a fresh copy of the tree every session starts from:
//
//	/projects/README.md
//	/notes.txt
//	/welcome.sh
func DefaultSeed() *SnapshotNode {
	return &SnapshotNode{
		Type: sandboxfs.DirNodeType,
		Children: []*SnapshotNode{
			{Name: "notes.txt", Type: sandboxfs.FileNodeType, Content: NotesContent},
			{
				Name: "projects",
				Type: sandboxfs.DirNodeType,
				Children: []*SnapshotNode{
					{Name: "README.md", Type: sandboxfs.FileNodeType, Content: ReadmeContent},
				},
			},
			{Name: "welcome.sh", Type: sandboxfs.FileNodeType, Content: WelcomeContent},
		},
	}
}
