package relay

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Symbols is the challenge alphabet.
var Symbols = []string{"🍎", "🍐", "🍊", "🍋", "🍌", "🍉", "🍇", "🍓"}

const (
	gridSize       = 9
	gridCols       = 3
	callbackPrefix = "verify:"
)

// Challenge is one human-verification puzzle: tap Target in a 3x3 grid.
type Challenge struct {
	ID        string
	UserID    int64
	Target    string
	Grid      [gridSize]string
	ExpiresAt time.Time
}

// ChallengeGenerator builds challenges. The zero value is ready to use.
type ChallengeGenerator struct {
	// IntN returns a uniform int in [0, n). Defaults to math/rand/v2.
	IntN func(n int) int
	// NewID returns a fresh challenge id. Defaults to a random UUID.
	NewID func() string
}

// Generate returns a challenge whose grid always contains the target.
// The target sits at a random cell; every other cell is an independent draw,
// so the target may appear more than once.
func (g *ChallengeGenerator) Generate(userID int64) Challenge {
	intn := g.IntN
	if intn == nil {
		intn = rand.IntN
	}
	newID := g.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	c := Challenge{
		ID:     newID(),
		UserID: userID,
		Target: Symbols[intn(len(Symbols))],
	}
	pos := intn(gridSize)
	for i := range c.Grid {
		if i == pos {
			c.Grid[i] = c.Target
			continue
		}
		c.Grid[i] = Symbols[intn(len(Symbols))]
	}
	return c
}

// Keyboard lays the grid out as 3 rows of 3 buttons.
func (c Challenge) Keyboard() Keyboard {
	kb := make(Keyboard, 0, gridSize/gridCols)
	for row := 0; row < gridSize/gridCols; row++ {
		buttons := make([]Button, 0, gridCols)
		for col := 0; col < gridCols; col++ {
			sym := c.Grid[row*gridCols+col]
			buttons = append(buttons, Button{Text: sym, Data: CallbackData(c.ID, sym)})
		}
		kb = append(kb, buttons)
	}
	return kb
}

// CallbackData encodes a grid cell press.
func CallbackData(challengeID, symbol string) string {
	return callbackPrefix + challengeID + ":" + symbol
}

// ParseCallbackData decodes data produced by CallbackData.
func ParseCallbackData(data string) (challengeID, symbol string, ok bool) {
	rest, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return "", "", false
	}
	challengeID, symbol, found = strings.Cut(rest, ":")
	if !found || challengeID == "" || symbol == "" {
		return "", "", false
	}
	return challengeID, symbol, true
}

// IsVerifyCallback reports whether data belongs to a verification keyboard.
func IsVerifyCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix)
}

func challengePrompt(target string) string {
	return fmt.Sprintf("Welcome! To prove you are human, please tap the %s button below:", target)
}

func challengeRetryPrompt(target string) string {
	return fmt.Sprintf("Wrong! Try again. Tap the %s:", target)
}
