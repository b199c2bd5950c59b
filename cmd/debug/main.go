// Command debug prints a freshly created position's encoding and legal
// move count, a quick sanity check of internal/board without standing up
// search or the HTTP front end.
package main

import (
	"flag"
	"fmt"

	"gozero/internal/board"
)

func main() {
	size := flag.Int("size", 9, "board size")
	flag.Parse()

	pos := board.New(*size)
	fmt.Println("position:", pos.Encode())
	fmt.Println("legal moves:", len(pos.LegalMoves()))
}
