package hid

// Modifier bits of a boot keyboard report.
const (
	ModifierLeftCtrl  uint8 = 0x01
	ModifierLeftShift uint8 = 0x02
	ModifierLeftAlt   uint8 = 0x04
	ModifierLeftGUI   uint8 = 0x08
)

// Keyboard usage IDs that are referenced directly.
const (
	KeyA     uint8 = 0x04
	Key1     uint8 = 0x1E
	Key0     uint8 = 0x27
	KeyEnter uint8 = 0x28
	KeyTab   uint8 = 0x2B
	KeySpace uint8 = 0x2C
)

// Key is a single key press on a US layout.
type Key struct {
	Modifier uint8
	Keycode  uint8
}

// Punctuation on a US layout. Shifted characters share a keycode with their unshifted pair.
var punctuation = map[byte]Key{
	' ':  {0, KeySpace},
	'-':  {0, 0x2D},
	'_':  {ModifierLeftShift, 0x2D},
	'=':  {0, 0x2E},
	'+':  {ModifierLeftShift, 0x2E},
	'[':  {0, 0x2F},
	'{':  {ModifierLeftShift, 0x2F},
	']':  {0, 0x30},
	'}':  {ModifierLeftShift, 0x30},
	'\\': {0, 0x31},
	'|':  {ModifierLeftShift, 0x31},
	';':  {0, 0x33},
	':':  {ModifierLeftShift, 0x33},
	'\'': {0, 0x34},
	'"':  {ModifierLeftShift, 0x34},
	'`':  {0, 0x35},
	'~':  {ModifierLeftShift, 0x35},
	',':  {0, 0x36},
	'<':  {ModifierLeftShift, 0x36},
	'.':  {0, 0x37},
	'>':  {ModifierLeftShift, 0x37},
	'/':  {0, 0x38},
	'?':  {ModifierLeftShift, 0x38},
	'!':  {ModifierLeftShift, Key1},
	'@':  {ModifierLeftShift, Key1 + 1},
	'#':  {ModifierLeftShift, Key1 + 2},
	'$':  {ModifierLeftShift, Key1 + 3},
	'%':  {ModifierLeftShift, Key1 + 4},
	'^':  {ModifierLeftShift, Key1 + 5},
	'&':  {ModifierLeftShift, Key1 + 6},
	'*':  {ModifierLeftShift, Key1 + 7},
	'(':  {ModifierLeftShift, Key1 + 8},
	')':  {ModifierLeftShift, Key0},
	'\n': {0, KeyEnter},
	'\t': {0, KeyTab},
}

// Lookup maps a byte of text to the key that types it. Printable ASCII, newline and tab are
// supported; other bytes report false.
func Lookup(c byte) (Key, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return Key{0, KeyA + (c - 'a')}, true
	case c >= 'A' && c <= 'Z':
		return Key{ModifierLeftShift, KeyA + (c - 'A')}, true
	case c == '0':
		return Key{0, Key0}, true
	case c >= '1' && c <= '9':
		return Key{0, Key1 + (c - '1')}, true
	}
	key, ok := punctuation[c]
	return key, ok
}
