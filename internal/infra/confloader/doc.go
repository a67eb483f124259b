// Package confloader loads server configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (SIDER_ prefix)
//  3. Configuration file (YAML)
//  4. Values already set on the target (defaults)
//
// A Watcher follows the configuration file with fsnotify so selected
// keys, such as log.level, can be applied without a restart.
package confloader
