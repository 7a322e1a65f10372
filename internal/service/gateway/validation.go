package gateway

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var UserIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 128),
}

var RoomIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 128),
}

var ItemIdRule = []validation.Rule{
	validation.Length(0, 128),
}

var VideoIdRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9_-]{1,64}$")),
}
