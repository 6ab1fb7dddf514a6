package sse

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/dmitrymomot/spinstream/core/stream"
)

// Parse decodes one raw frame into an event of the given channel.
// ok is false for frames that carry nothing for the feed, such as unknown
// comments or a lone retry field.
func Parse(frame []byte, channel string) (ev stream.Event, ok bool, err error) {
	var (
		kind     string
		hasKind  bool
		id       string
		hasID    bool
		data     []string
		hasData  bool
		comments []string
	)

	for _, raw := range bytes.Split(frame, []byte("\n")) {
		line := strings.TrimSuffix(string(raw), "\r")
		if line == "" {
			continue
		}
		if line[0] == ':' {
			comments = append(comments, strings.TrimSpace(line[1:]))
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			kind, hasKind = value, true
		case "id":
			id, hasID = value, true
		case "data":
			data = append(data, value)
			hasData = true
		default:
			// retry and fields added by proxies carry nothing for the feed.
		}
	}

	if !hasKind && !hasData {
		return parseComments(comments, channel)
	}

	ev = stream.Event{Channel: channel, Kind: stream.KindUpdate}
	if hasKind {
		k, err := stream.ParseKind(kind)
		if err != nil {
			return stream.Event{}, false, &DecodeError{Line: "event: " + kind, Err: err}
		}
		ev.Kind = k
	}
	if hasID && id != "" {
		seq, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return stream.Event{}, false, &DecodeError{Line: "id: " + id, Err: ErrInvalidID}
		}
		ev.Sequence = seq
	}
	if ev.Kind == stream.KindUpdate && !hasData {
		return stream.Event{}, false, &DecodeError{Line: "event: " + kind, Err: ErrMissingData}
	}
	ev.Payload = strings.Join(data, "\n")

	return ev, true, nil
}

func parseComments(comments []string, channel string) (stream.Event, bool, error) {
	for _, c := range comments {
		name, rest, _ := strings.Cut(c, " ")
		switch name {
		case commentConnected:
			return stream.Event{Channel: channel, Kind: stream.KindConnected, Payload: strings.TrimSpace(rest)}, true, nil
		case commentHeartbeat:
			return stream.Event{Channel: channel, Kind: stream.KindHeartbeat}, true, nil
		}
	}
	return stream.Event{}, false, nil
}
