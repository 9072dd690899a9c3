// Package lifecycle implements the create/update/delete state machine for a
// versioned search index managed as a CloudFormation custom resource.
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
)

// RequestType is the lifecycle operation requested by the orchestrator.
type RequestType string

const (
	RequestCreate RequestType = RequestType(cfn.RequestCreate)
	RequestUpdate RequestType = RequestType(cfn.RequestUpdate)
	RequestDelete RequestType = RequestType(cfn.RequestDelete)
)

// Resource property keys recognised in ResourceProperties.
const (
	PropMappingBucket    = "MappingBucket"
	PropMappingKey       = "MappingKey"
	PropIndexNamePrefix  = "IndexNamePrefix"
	PropMaxHealthRetries = "MaxHealthRetries"
)

// Properties holds per-event overrides of the deployment configuration.
// Zero values mean "use the controller default".
type Properties struct {
	MappingBucket    string
	MappingKey       string
	IndexNamePrefix  string
	MaxHealthRetries *int
}

// Event is a validated lifecycle event. PhysicalResourceID is guaranteed to
// be non-empty for Update and Delete. OldProperties is only populated for
// Update and describes the version being replaced.
type Event struct {
	RequestType        RequestType
	PhysicalResourceID string
	Properties         Properties
	OldProperties      Properties
}

// ParseEvent validates a raw CloudFormation event and converts it to an Event.
func ParseEvent(raw cfn.Event) (Event, error) {
	rt := RequestType(raw.RequestType)
	switch rt {
	case RequestCreate:
	case RequestUpdate, RequestDelete:
		if raw.PhysicalResourceID == "" {
			return Event{}, fmt.Errorf("%w: event.PhysicalResourceId is required", ErrInvalidEvent)
		}
	default:
		return Event{}, fmt.Errorf("%w: %w: %q", ErrInvalidEvent, ErrUnknownRequestType, raw.RequestType)
	}

	props, err := parseProperties(raw.ResourceProperties)
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		RequestType: rt,
		Properties:  props,
	}
	if rt != RequestCreate {
		ev.PhysicalResourceID = raw.PhysicalResourceID
	}
	if rt == RequestUpdate {
		if ev.OldProperties, err = parseProperties(raw.OldResourceProperties); err != nil {
			return Event{}, fmt.Errorf("old properties: %w", err)
		}
	}
	return ev, nil
}

// parseProperties reads the recognised keys. CloudFormation delivers every
// scalar property as a string, so numbers are accepted in either form.
func parseProperties(raw map[string]interface{}) (Properties, error) {
	var p Properties
	if raw == nil {
		return p, nil
	}

	var err error
	if p.MappingBucket, err = stringProp(raw, PropMappingBucket); err != nil {
		return p, err
	}
	if p.MappingKey, err = stringProp(raw, PropMappingKey); err != nil {
		return p, err
	}
	if p.IndexNamePrefix, err = stringProp(raw, PropIndexNamePrefix); err != nil {
		return p, err
	}

	v, ok := raw[PropMaxHealthRetries]
	if !ok || v == nil {
		return p, nil
	}
	var n int
	switch val := v.(type) {
	case string:
		n, err = strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return p, fmt.Errorf("%w: %s must be an integer: %v", ErrInvalidEvent, PropMaxHealthRetries, err)
		}
	case float64:
		n = int(val)
		if float64(n) != val {
			return p, fmt.Errorf("%w: %s must be an integer", ErrInvalidEvent, PropMaxHealthRetries)
		}
	default:
		return p, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidEvent, PropMaxHealthRetries, v)
	}
	if n < 0 {
		return p, fmt.Errorf("%w: %s must not be negative", ErrInvalidEvent, PropMaxHealthRetries)
	}
	p.MaxHealthRetries = &n
	return p, nil
}

func stringProp(raw map[string]interface{}, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidEvent, key)
	}
	return s, nil
}
