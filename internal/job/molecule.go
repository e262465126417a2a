package job

import "encoding/json"

// Molecule is the chemistry payload accepted by the optional black-box
// model worker. The scheduler core never inspects its contents — it only
// needs to marshal it through the task channel and back out over HTTP —
// so it is kept as an opaque JSON value.
type Molecule = json.RawMessage

// Computed is the opaque computed-result counterpart to Molecule, returned
// by the chemical-model variant of a worker.
type Computed = json.RawMessage
