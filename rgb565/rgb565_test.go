package rgb565

import (
	"image"
	"image/color"
	"testing"
)

func TestPack(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    uint16
	}{
		{"black", 0, 0, 0, 0x0000},
		{"white", 255, 255, 255, 0xFFFF},
		{"red", 255, 0, 0, 0xF800},
		{"green", 0, 255, 0, 0x07E0},
		{"blue", 0, 0, 255, 0x001F},
		{"mid gray", 0x80, 0x80, 0x80, 0x8410},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pack(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("Pack(%d, %d, %d) = %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestSwap(t *testing.T) {
	tests := []struct {
		in   uint16
		want uint16
	}{
		{0x0102, 0x0201},
		{0x0000, 0x0000},
		{0xFFFF, 0xFFFF},
		{0xF800, 0x00F8},
		{0xABCD, 0xCDAB},
	}

	for _, tt := range tests {
		if got := Swap(tt.in); got != tt.want {
			t.Errorf("Swap(%#04x) = %#04x, want %#04x", tt.in, got, tt.want)
		}
		if got := Swap(Swap(tt.in)); got != tt.in {
			t.Errorf("Swap(Swap(%#04x)) = %#04x, want the input back", tt.in, got)
		}
	}
}

func TestRGB565RGBA(t *testing.T) {
	tests := []struct {
		name    string
		c       RGB565
		r, g, b uint32
	}{
		{"black", RGB565{V: 0x0000}, 0x0000, 0x0000, 0x0000},
		{"white", RGB565{V: 0xFFFF}, 0xFFFF, 0xFFFF, 0xFFFF},
		{"red", RGB565{V: 0xF800}, 0xFFFF, 0x0000, 0x0000},
		{"blue", RGB565{V: 0x001F}, 0x0000, 0x0000, 0xFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := tt.c.RGBA()
			if r != tt.r || g != tt.g || b != tt.b || a != 0xFFFF {
				t.Errorf("RGBA() = (%x, %x, %x, %x), want (%x, %x, %x, ffff)",
					r, g, b, a, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestModelConvert(t *testing.T) {
	tests := []struct {
		name  string
		input color.Color
		want  uint16
	}{
		{"passthrough", RGB565{V: 0x1234}, 0x1234},
		{"black", color.Black, 0x0000},
		{"white", color.White, 0xFFFF},
		{"red", color.RGBA{0xFF, 0x00, 0x00, 0xFF}, 0xF800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Model.Convert(tt.input).(RGB565)
			if got.V != tt.want {
				t.Errorf("Model.Convert(%v).V = %#04x, want %#04x", tt.input, got.V, tt.want)
			}
		})
	}
}

func TestImageSetAt(t *testing.T) {
	img := New(image.Rect(0, 0, 4, 2))
	if len(img.Pix) != 16 {
		t.Fatalf("len(Pix) = %d, want 16", len(img.Pix))
	}

	img.SetRGB565(1, 0, RGB565{V: 0x0102})
	// Stored byte-swapped: high byte first.
	if img.Pix[2] != 0x01 || img.Pix[3] != 0x02 {
		t.Errorf("Pix[2:4] = [%#02x %#02x], want [0x01 0x02]", img.Pix[2], img.Pix[3])
	}
	if got := img.RGB565At(1, 0); got.V != 0x0102 {
		t.Errorf("RGB565At(1, 0).V = %#04x, want 0x0102", got.V)
	}

	// Out of bounds is a no-op / zero value.
	img.SetRGB565(10, 10, RGB565{V: 0xFFFF})
	if got := img.RGB565At(10, 10); got.V != 0 {
		t.Errorf("out-of-bounds RGB565At = %#04x, want 0", got.V)
	}
}

func TestImageSetColor(t *testing.T) {
	img := New(image.Rect(0, 0, 2, 2))
	img.Set(0, 1, color.RGBA{0xFF, 0x00, 0x00, 0xFF})
	if got := img.RGB565At(0, 1); got.V != 0xF800 {
		t.Errorf("RGB565At(0, 1).V = %#04x, want 0xF800", got.V)
	}
	if img.ColorModel() != Model {
		t.Error("ColorModel() did not return Model")
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 2, 2) {
		t.Errorf("Bounds() = %v", got)
	}
}
