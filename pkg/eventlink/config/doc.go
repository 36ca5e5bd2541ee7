/*
Package config loads eventlink settings from a YAML or JSON file, overlays
environment variables, and validates the result.

# Values

Values wraps the decoded document and extracts typed values by dotted path.
Missing keys and type mismatches yield the caller's default:

	v, err := config.FromFile("eventlink.yaml")
	if err != nil {
	    return err
	}
	kind := v.String("transport.kind", "memory")
	timeout := v.Duration("requests.timeout", 2*time.Second)
	redis := v.Section("transport.redis")

Duration accepts a time.ParseDuration string ("750ms", "2s") or a number of
seconds.

# Settings

Settings is the typed configuration of a node:

	s, err := config.Load("eventlink.yaml", "EVENTLINK")

Load starts from DefaultSettings, applies the file (when path is not
empty), then environment variables named PREFIX_SECTION_FIELD, for example
EVENTLINK_TRANSPORT_KIND or EVENTLINK_COMPENSATION_FAILURE_RATE, and
finally validates.
*/
package config
