package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"intradaytick/models"
)

// ErrUsage is returned when the command line cannot be understood.
var ErrUsage = errors.New("invalid command line")

const usage = `Usage:
  Retrieve intraday rawticks
    [-n     :non-interactive]
    [-s     <security = IBM US Equity>]
    [-e     <event = TRADE/BID/ASK>]
    [-sd    <startDateTime  = 2008-08-11T15:30:00>]
    [-ed    <endDateTime    = 2008-08-11T15:35:00>]
    [-ip    <ipAddress = localhost>]
    [-p     <tcpPort   = 8194>]
Notes:
1) All times are in GMT.
2) Only one security can be specified.
`

// Options are the per-run request settings taken from the command line.
type Options struct {
	NonInteractive bool
	Security       string
	Events         []string
	StartDateTime  string
	EndDateTime    string

	SecurityAssigned      bool
	StartDateTimeAssigned bool
	EndDateTimeAssigned   bool
}

type eventList []string

func (e *eventList) String() string {
	if e == nil {
		return ""
	}
	return strings.Join(*e, ",")
}

func (e *eventList) Set(v string) error {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return errors.New("empty event type")
	}
	*e = append(*e, v)
	return nil
}

// PrintUsage writes the command line help.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}

// ParseArgs parses args (without the program name). Host and port flags
// override cfg.Session.
func ParseArgs(args []string, cfg *Config) (*Options, error) {
	opts := &Options{Security: models.DefaultSecurity}

	fs := flag.NewFlagSet("intradaytick", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		events eventList
		host   string
		port   int
	)
	fs.BoolVar(&opts.NonInteractive, "n", false, "non-interactive")
	fs.StringVar(&opts.Security, "s", models.DefaultSecurity, "security")
	fs.Var(&events, "e", "event type, repeatable")
	fs.StringVar(&opts.StartDateTime, "sd", "", "start datetime (GMT)")
	fs.StringVar(&opts.EndDateTime, "ed", "", "end datetime (GMT)")
	fs.StringVar(&host, "ip", "", "gateway host")
	fs.IntVar(&port, "p", 0, "gateway port")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	portAssigned := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			portAssigned = true
		case "s":
			opts.SecurityAssigned = true
		case "sd":
			opts.StartDateTimeAssigned = true
		case "ed":
			opts.EndDateTimeAssigned = true
		}
	})

	opts.Events = events
	if len(opts.Events) == 0 {
		opts.Events = append([]string(nil), models.DefaultEventTypes...)
	}

	if host != "" {
		cfg.Session.Host = host
	}
	if portAssigned {
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: port %d out of range", ErrUsage, port)
		}
		cfg.Session.Port = port
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks the datetime range. Empty values are allowed and are
// replaced by the default trading window when the request is built.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Security) == "" {
		return fmt.Errorf("%w: security is required", ErrUsage)
	}

	var start, end time.Time
	var err error
	if o.StartDateTime != "" {
		if start, err = ParseDateTime(o.StartDateTime); err != nil {
			return fmt.Errorf("%w: start datetime: %v", ErrUsage, err)
		}
	}
	if o.EndDateTime != "" {
		if end, err = ParseDateTime(o.EndDateTime); err != nil {
			return fmt.Errorf("%w: end datetime: %v", ErrUsage, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: end datetime %s is before start %s", ErrUsage, o.EndDateTime, o.StartDateTime)
	}
	return nil
}

// ParseDateTime accepts YYYY-MM-DDTHH:MM:SS with optional fractional seconds,
// always in GMT.
func ParseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(models.DateTimeLayout, s, time.UTC)
}
