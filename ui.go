package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sqweek/dialog"
)

// printBanner prints a colored ASCII art banner for nightfoxfilms-import.
func printBanner() {
	banner := `
  _   _ _       _     _  __
 | \ | (_) __ _| |__ | |/ _| _____  __
 |  \| | |/ _' | '_ \| | |_ / _ \ \/ /
 | |\  | | (_| | | | | |  _| (_) >  <
 |_| \_|_|\__, |_| |_|_|_|  \___/_/\_\
          |___/   f i l m s   i m p o r t
`
	color.New(color.FgBlack, color.Bold).Println(banner)
}

// isGUIAvailable checks if a GUI toolkit is usable without showing errors.
func isGUIAvailable() bool {
	defer func() { recover() }()
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return false
	}
	return true
}

// guiDirectoryPicker opens a native directory selection dialog.
func guiDirectoryPicker(title string) (string, error) {
	defer func() { recover() }()
	directory, err := dialog.Directory().Title(title).Browse()
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(directory); err != nil || !info.IsDir() {
		return "", err
	}
	return directory, nil
}

// newHexID generates a fresh 16-character lowercase hex location id, the
// format archive.Path requires (^[0-9a-f]{16}$).
func newHexID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		color.New(color.FgRed, color.Bold).Printf("failed to generate location id: %v\n", err)
		os.Exit(1)
	}
	return hex.EncodeToString(b[:])
}

func promptText(label string, validate func(string) error) string {
	prompt := promptui.Prompt{Label: label, Validate: validate}
	val, err := prompt.Run()
	if err == promptui.ErrInterrupt {
		color.New(color.FgRed, color.Bold).Println("\nInterrupted during prompt. Exiting cleanly.")
		os.Exit(130)
	} else if err != nil {
		color.New(color.FgRed, color.Bold).Printf("prompt failed: %v\n", err)
		os.Exit(1)
	}
	return val
}

func promptDir(label string, guiTitle string, useGUI bool) string {
	if useGUI && isGUIAvailable() {
		if dir, err := guiDirectoryPicker(guiTitle); err == nil && dir != "" {
			return dir
		}
	}
	return promptText(label, func(input string) error {
		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("not a valid directory")
		}
		return nil
	})
}

// interactivePrompt walks the user through picking source directories, the
// archive base, and the location this batch imports into. archiveDefault
// pre-fills the archive prompt when one was already supplied on the
// command line.
func interactivePrompt(archiveDefault string) (srcDirs []string, archiveBase, locid, addrState, subid, importer string) {
	printBanner()

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Println("Let's import some media into the archive.")
	fmt.Println()

	readyPrompt := promptui.Select{
		Label: "Ready to start an import?",
		Items: []string{"Yes, let's go", "No, maybe later"},
	}
	_, ready, err := readyPrompt.Run()
	if err == promptui.ErrInterrupt {
		os.Exit(130)
	} else if err != nil {
		color.New(color.FgRed, color.Bold).Printf("prompt failed: %v\n", err)
		os.Exit(1)
	}
	if ready != "Yes, let's go" {
		color.New(color.FgYellow).Println("\nNo worries, come back when you're ready.")
		os.Exit(0)
	}

	useGUI := isGUIAvailable()

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Println("Source directories")
	src := promptDir("Source directory (first, or only, one)", "Select Source Directory", useGUI)
	srcDirs = append(srcDirs, src)
	for {
		morePrompt := promptui.Select{Label: "Add another source directory?", Items: []string{"No", "Yes"}}
		_, more, err := morePrompt.Run()
		if err != nil || more != "Yes" {
			break
		}
		srcDirs = append(srcDirs, promptDir("Another source directory", "Select Source Directory", useGUI))
	}

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Println("Archive destination")
	if archiveDefault != "" {
		archiveBase = archiveDefault
	} else {
		archiveBase = promptDir("Archive base directory", "Select Archive Base Directory", useGUI)
	}

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Println("Location")
	locidPrompt := promptui.Prompt{
		Label:   "Location id (leave blank to generate a new one)",
		Default: "",
	}
	locid, err = locidPrompt.Run()
	if err != nil {
		os.Exit(130)
	}
	if locid == "" {
		locid = newHexID()
	}
	addrState = promptText("Two-letter state (blank for unknown)", func(string) error { return nil })
	subid = promptText("Sub-location id (blank for none)", func(string) error { return nil })
	importer = promptText("Your name (recorded as importer)", func(string) error { return nil })

	fmt.Println()
	color.New(color.FgMagenta, color.Bold).Println("Starting import...")
	return srcDirs, archiveBase, locid, addrState, subid, importer
}
