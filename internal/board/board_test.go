package board

import "testing"

func TestNewPositionHash(t *testing.T) {
	p := New(9)
	if p.ToMove() != Black {
		t.Fatalf("expected black to move, got %v", p.ToMove())
	}
	if p.Hash() == 0 {
		t.Fatalf("expected non-zero hash for empty board")
	}
}

func TestPlayAndCapture(t *testing.T) {
	p := New(5)
	// Surround a single white stone at (2,2)=12 with black stones, capture it.
	// White's other two moves go to the far corners 0 and 24.
	plays := []Point{7, 12, 11, 0, 13, 24, 17}
	var ok bool
	for i, pt := range plays {
		p, ok = p.Play(pt)
		if !ok {
			t.Fatalf("move %d (%v) rejected", i, pt)
		}
	}
	if p.At(7) != Black {
		t.Fatalf("expected black stone to survive at 7")
	}
	if p.At(12) != Empty {
		t.Fatalf("expected captured white stone at 12 to be removed, got %v", p.At(12))
	}
}

func TestSuicideIllegal(t *testing.T) {
	p := New(5)
	// Black fills every liberty around 12 except 12 itself, then White
	// cannot legally play into the fully surrounded point.
	for _, pt := range []Point{7, 11, 13, 17} {
		var ok bool
		p, ok = p.Play(pt)
		if !ok {
			t.Fatalf("setup move %v rejected", pt)
		}
		// alternate: play a harmless pass-equivalent elsewhere for the
		// other side so black keeps playing every other move.
		p, ok = p.Play(Pass)
		if !ok {
			t.Fatalf("pass rejected")
		}
	}
	// Black passes once more so that White is the side to move.
	p, _ = p.Play(Pass)
	if _, ok := p.Play(12); ok {
		t.Fatalf("expected suicide move at 12 to be rejected")
	}
}

func TestPassTwiceIsTerminal(t *testing.T) {
	p := New(9)
	p, _ = p.Play(Pass)
	p, _ = p.Play(Pass)
	if !p.Terminal() {
		t.Fatalf("expected terminal position after two passes")
	}
}

func TestSuperkoRejectsRepeat(t *testing.T) {
	p := New(3)
	// Play a few setup moves on a 3x3 board (no stone is captured by them),
	// then confirm that no position Play accepts from there repeats an
	// earlier one.
	seq := []Point{1, 3, 5, 7, 4}
	cur := p
	for _, pt := range seq {
		var ok bool
		cur, ok = cur.Play(pt)
		if !ok {
			t.Fatalf("setup move %v rejected", pt)
		}
	}
	// Every move LegalMoves offers is played, and the resulting position
	// must not be flagged by Superko() as a repeat of an earlier one.
	moves := cur.LegalMoves()
	for _, mv := range moves {
		next, ok := cur.Play(mv)
		if !ok {
			continue
		}
		if next.Superko() {
			t.Fatalf("Play produced a position flagged as its own superko repeat")
		}
	}
}

func TestFinalScoreAreaCounting(t *testing.T) {
	p := New(5)
	p, _ = p.Play(0) // black corner
	score := p.FinalScore()
	if score <= 0 {
		t.Fatalf("expected black to lead after claiming a corner, got %d", score)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := New(5)
	p, _ = p.Play(6)
	p, _ = p.Play(7)
	enc := p.Encode()
	decoded, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Encode() != enc {
		t.Fatalf("round trip mismatch: %q vs %q", decoded.Encode(), enc)
	}
}
