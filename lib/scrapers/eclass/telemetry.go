package eclass

import (
	"eclass-backend/lib/restyutil"
	"eclass-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("eclass.lib.scrapers.eclass")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput routes full request/response dumps of every
// portal exchange to out. Call before NewClient.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
