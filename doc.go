// Package khub wires the chat backend client together.
//
// NewClient builds, from ClientOptions, a credential store, the raw HTTP
// transport, the authenticated request pipeline with single-flight token
// refresh, the REST client and the settings store. Options can be populated
// from CLI flags or a YAML document loaded with LoadOptions.
//
// Example:
//
//	options, _ := khub.LoadOptions(ctx, "/etc/khub/config.yaml")
//	client, _ := khub.NewClient(ctx, options)
//	_, _ = client.Login(ctx, "alice", "secret")
//	_, _ = client.Settings.Load(ctx)
package khub
