// Package embedded provides the default pattern table compiled into the
// binary. Projects override it with triggers_file in their config.
package embedded

import _ "embed"

// TriggersYAML is the default pattern table.
//
//go:embed defaults/triggers.yaml
var TriggersYAML []byte

// TriggersFormat is the extension ParseTable expects for TriggersYAML.
const TriggersFormat = ".yaml"
