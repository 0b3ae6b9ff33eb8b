// Package config loads the gateway's on-disk configuration: its own
// GatewayConfig (config.yaml) and the set of UpstreamConfig definitions under
// an upstreams/ subdirectory, one YAML file per upstream. Definitions follow
// the same directory-of-files convention used for the rest of the corpus's
// entity storage: each file validates independently, so one bad definition
// doesn't block the rest from loading.
package config
