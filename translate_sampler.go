package pso

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pso/gpucore"
)

// defaultAnisotropy replaces an unset SamplerStateDesc.Anisotropy.
const defaultAnisotropy = 4

// Filter tables are indexed by [TextureFilterMode][shadow compare].
var minMagFilters = [...][2]gpucore.FilterType{
	FilterNearest:            {gpucore.FilterPoint, gpucore.FilterComparisonPoint},
	FilterBilinear:           {gpucore.FilterLinear, gpucore.FilterComparisonLinear},
	FilterTrilinear:          {gpucore.FilterLinear, gpucore.FilterComparisonLinear},
	FilterAnisotropic:        {gpucore.FilterAnisotropic, gpucore.FilterComparisonAnisotropic},
	FilterNearestAnisotropic: {gpucore.FilterPoint, gpucore.FilterComparisonPoint},
}

var mipFilters = [...][2]gpucore.FilterType{
	FilterNearest:            {gpucore.FilterPoint, gpucore.FilterComparisonPoint},
	FilterBilinear:           {gpucore.FilterPoint, gpucore.FilterComparisonPoint},
	FilterTrilinear:          {gpucore.FilterLinear, gpucore.FilterComparisonLinear},
	FilterAnisotropic:        {gpucore.FilterAnisotropic, gpucore.FilterComparisonAnisotropic},
	FilterNearestAnisotropic: {gpucore.FilterLinear, gpucore.FilterLinear},
}

var addressModes = [...]gputypes.AddressMode{
	AddressWrap:   gputypes.AddressModeRepeat,
	AddressMirror: gputypes.AddressModeMirrorRepeat,
	AddressClamp:  gputypes.AddressModeClampToEdge,
}

var (
	_ = [1]struct{}{}[len(minMagFilters)-numConcreteFilterModes]
	_ = [1]struct{}{}[len(mipFilters)-numConcreteFilterModes]
	_ = [1]struct{}{}[len(addressModes)-numAddressModes]
)

// translateSampler resolves d into a backend sampler bound to name.
func translateSampler(d SamplerStateDesc, name string, stages gpucore.ShaderStage) gpucore.ImmutableSampler {
	filter := d.FilterMode
	if filter >= numConcreteFilterModes {
		filter = FilterTrilinear
	}
	anisotropy := uint32(d.Anisotropy)
	if anisotropy == 0 {
		anisotropy = defaultAnisotropy
	}
	cmpIdx := 0
	if d.ShadowCompare {
		cmpIdx = 1
	}

	return gpucore.ImmutableSampler{
		ShaderStages:         stages,
		SamplerOrTextureName: name,
		Desc: gpucore.SamplerDesc{
			MinFilter:      minMagFilters[filter][cmpIdx],
			MagFilter:      minMagFilters[filter][cmpIdx],
			MipFilter:      mipFilters[filter][cmpIdx],
			AddressU:       translateAddress(d.AddressMode[0]),
			AddressV:       translateAddress(d.AddressMode[1]),
			AddressW:       translateAddress(d.AddressMode[2]),
			MaxAnisotropy:  anisotropy,
			ComparisonFunc: gputypes.CompareFunctionLessEqual,
			MinLOD:         float32(math.Inf(-1)),
			MaxLOD:         float32(math.Inf(1)),
		},
	}
}

func translateAddress(m TextureAddressMode) gputypes.AddressMode {
	if int(m) < len(addressModes) {
		return addressModes[m]
	}
	return gputypes.AddressModeRepeat
}

// translateSamplers creates one immutable sampler per sampled resource of
// refl, in resource name order. Resources without an override get the
// bilinear sampler under SamplerFallbackWarn and fail the build under
// SamplerFallbackError.
func translateSamplers(overrides SamplerOverrides, refl *ShaderProgramReflection, stages gpucore.ShaderStage,
	policy SamplerFallback,
) ([]gpucore.ImmutableSampler, error) {
	resources := refl.Resources()
	out := make([]gpucore.ImmutableSampler, 0, len(resources))
	for _, res := range resources {
		d, ok := overrides.Lookup(gpucore.HashName(res.Name))
		if !ok {
			if policy == SamplerFallbackError {
				return nil, fmt.Errorf("%w: %s", ErrNoDefaultSampler, res.InternalName())
			}
			slogger().Warn("pso: default sampler is used for resource", "resource", res.InternalName())
			d = BilinearSampler()
		}
		out = append(out, translateSampler(d, res.InternalName(), stages))
	}
	return out, nil
}
