//go:build property

package model

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"assetrepo/internal/jsonbind"
)

func constsOf[E any](values []E) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func TestAssetRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("unmarshal(marshal(asset)) reproduces the asset", prop.ForAll(
		func(name, description string, typ ResourceType, vis Visibility, size int64, restart bool, ticks int64, products []string) bool {
			infos := make([]*AppliesToFilterInfo, 0, len(products))
			for _, p := range products {
				infos = append(infos, &AppliesToFilterInfo{ProductID: p, HasMaxVersion: "false"})
			}
			in := &Asset{
				Name:          name,
				Description:   description,
				Type:          typ,
				LastUpdatedOn: time.Unix(0, ticks*100).UTC(),
				WlpInformation: &WlpInformation{
					WlpInformationVersion: CurrentWlpInformationVersion,
					Visibility:            vis,
					MainAttachmentSize:    size,
					IsRestartRequired:     restart,
					AppliesToFilterInfo:   infos,
					ProvideFeature:        products,
				},
			}
			data, err := Assets.Marshal(in)
			if err != nil {
				return false
			}
			out, err := Assets.Unmarshal(data, jsonbind.Options{StrictUnknownFields: true})
			if err != nil {
				return false
			}
			return reflect.DeepEqual(in, out)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.OneConstOf(constsOf(ResourceTypes())...),
		gen.OneConstOf(constsOf(visibilities.variants)...),
		gen.Int64(),
		gen.Bool(),
		gen.Int64Range(1, 41024448000000000),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
