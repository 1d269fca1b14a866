package tuitest

import "fmt"

var (
	// KeyEnter sends a carriage return.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC asks the program to terminate.
	KeyCtrlC = []byte{3}
	// KeyEsc backs out of the current mode.
	KeyEsc = []byte{27}
)

// Type returns the bytes for typing the given text verbatim.
func Type(text string) []byte { return []byte(text) }

// Mouse input uses SGR encoding, which the viewer negotiates via cell
// motion tracking. Coordinates are zero-based screen cells; the wire
// format is one-based.

// MousePress is a left-button press at the given cell.
func MousePress(col, row int) []byte {
	return []byte(fmt.Sprintf("\x1b[<0;%d;%dM", col+1, row+1))
}

// MouseDrag is pointer motion with the left button held.
func MouseDrag(col, row int) []byte {
	return []byte(fmt.Sprintf("\x1b[<32;%d;%dM", col+1, row+1))
}

// MouseRelease lifts the left button at the given cell.
func MouseRelease(col, row int) []byte {
	return []byte(fmt.Sprintf("\x1b[<0;%d;%dm", col+1, row+1))
}
