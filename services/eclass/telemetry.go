package eclass

import (
	"eclass-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("eclass.services.eclass")
