package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Athens")
	if err != nil {
		panic(err)
	}
}

// force the clock into the university's timezone so that day boundaries
// in stored fetch history line up with the portal's idea of "today"
// regardless of where the process runs
func Now() time.Time {
	return time.Now().In(Location)
}
