package gelfbuf

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is a GELF/syslog severity. Lower values are more severe.
type Level int32

const (
	LevelEmergency Level = iota
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var levelNames = map[Level]string{
	LevelEmergency: "emergency",
	LevelAlert:     "alert",
	LevelCritical:  "critical",
	LevelError:     "error",
	LevelWarning:   "warning",
	LevelNotice:    "notice",
	LevelInfo:      "info",
	LevelDebug:     "debug",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int32(l))
}

// Allows reports whether a record at the given level passes this threshold.
func (l Level) Allows(record Level) bool {
	return record <= l
}

// ParseLevel converts a level name to a Level. Common syslog aliases are
// accepted (emerg, crit, err, warn, informational).
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "emergency", "emerg":
		return LevelEmergency, nil
	case "alert":
		return LevelAlert, nil
	case "critical", "crit":
		return LevelCritical, nil
	case "error", "err":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "notice":
		return LevelNotice, nil
	case "informational", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", name)
}

// UnmarshalYAML accepts a level name ("info") or a raw syslog number (6).
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	var num int32
	if err := node.Decode(&num); err == nil {
		if num < int32(LevelEmergency) || num > int32(LevelDebug) {
			return fmt.Errorf("invalid log level: %d", num)
		}
		*l = Level(num)
		return nil
	}

	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
