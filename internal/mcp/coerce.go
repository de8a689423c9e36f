package mcp

import (
	"github.com/go-viper/mapstructure/v2"
)

// bindArguments decodes MCP tool arguments into target using the json tags
// of its fields. Inputs are weakly typed since some MCP clients send every
// parameter as a string ("true", "10").
func bindArguments(argsMap map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(argsMap)
}
