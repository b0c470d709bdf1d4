// Package config loads mkincludes' tool configuration.
//
// Configuration is layered with koanf, later layers overriding earlier ones:
//
//  1. embedded defaults (embedded/defaults.toml)
//  2. the user file, $XDG_CONFIG_HOME/mkincludes/config.toml
//  3. .mkincludes.toml in the working directory
//  4. a file named explicitly on the command line
//
// Only the embedded defaults are required; every other layer is optional
// except an explicit file, which must exist.
package config
