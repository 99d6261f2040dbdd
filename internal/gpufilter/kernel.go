package gpufilter

import (
	"image"
	"math"
)

const embossKernel = "Emboss"

// embossFactor divides the summed channel gradient.
const embossFactor float32 = 5.0

const embossSource = `
__constant sampler_t sampler = CLK_NORMALIZED_COORDS_FALSE | CLK_ADDRESS_CLAMP_TO_EDGE | CLK_FILTER_NEAREST;

__kernel void Emboss(__read_only image2d_t imgIn, __write_only image2d_t imgOut, float factor)
{
    const int2 pos = { get_global_id(0), get_global_id(1) };

    float4 diff = read_imagef(imgIn, sampler, pos + (int2)(1, 1)) - read_imagef(imgIn, sampler, pos - (int2)(1, 1));
    float color = (diff.x + diff.y + diff.z) / factor + 0.5f;

    write_imagef(imgOut, pos, (float4)(color, color, color, 1.0f));
}
`

// embossRows runs the Emboss kernel on rows [y0, y1) of out. Coordinates are
// clamped to the edge of in, like CLK_ADDRESS_CLAMP_TO_EDGE.
func embossRows(in, out *image.RGBA, factor float32, y0, y1 int) {
	w, h := in.Rect.Dx(), in.Rect.Dy()
	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v >= hi {
			return hi - 1
		}
		return v
	}
	for y := y0; y < y1; y++ {
		yn, yp := clamp(y+1, h), clamp(y-1, h)
		for x := 0; x < out.Rect.Dx(); x++ {
			a := in.PixOffset(in.Rect.Min.X+clamp(x+1, w), in.Rect.Min.Y+yn)
			b := in.PixOffset(in.Rect.Min.X+clamp(x-1, w), in.Rect.Min.Y+yp)

			var sum float32
			for c := 0; c < 3; c++ {
				sum += (float32(in.Pix[a+c]) - float32(in.Pix[b+c])) / 255
			}
			v := unorm8(sum/factor + 0.5)

			o := out.PixOffset(out.Rect.Min.X+x, out.Rect.Min.Y+y)
			out.Pix[o+0], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = v, v, v, 0xff
		}
	}
}

func unorm8(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 0xff
	}
	return uint8(math.Round(float64(f) * 255))
}
