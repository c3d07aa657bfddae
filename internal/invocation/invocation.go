// Package invocation converts the three event shapes phiguard is invoked with
// into one engine.Request, and wraps results in the matching response.
//
//   - direct:         {"config": {...}, "remediate": bool, "dry_run": bool}
//   - custom resource: a CloudFormation request whose ResourceProperties.ScanConfig
//     holds a direct event as a JSON string
//   - config event:   an AWS Config rule evaluation for one bucket, either
//     wrapped in an SNS notification or delivered bare
package invocation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pankaj-dahiya-devops/phiguard/internal/engine"
	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
	"github.com/pankaj-dahiya-devops/phiguard/internal/policy"
)

// Envelope identifies the shape a response must take.
type Envelope string

const (
	EnvelopeDirect         Envelope = "direct"
	EnvelopeCustomResource Envelope = "custom_resource"
	EnvelopeConfigEvent    Envelope = "config_event"
)

// ConfigRules maps the AWS Config managed rules phiguard answers to the
// actions that bring a non-compliant bucket back into compliance.
var ConfigRules = map[string][]models.ActionKind{
	"s3-bucket-public-read-prohibited": {
		models.ActionRemovedPublicACL,
		models.ActionEnabledPublicAccessBlock,
	},
	"s3-bucket-versioning-enabled":             {models.ActionEnabledVersioning},
	"s3-bucket-server-side-encryption-enabled": {models.ActionEnabledEncryption},
	"s3-bucket-ssl-requests-only":              {models.ActionEnforcedSSL},
	"s3-bucket-logging-enabled":                {models.ActionEnabledLogging},
}

// ErrUnknownRule is returned for config events naming a rule with no
// remediation.
var ErrUnknownRule = errors.New("no remediation for rule")

// directEvent is the canonical input. Pointers distinguish a missing flag
// from false.
type directEvent struct {
	Config    *policy.ScanConfig `json:"config"`
	Remediate *bool              `json:"remediate"`
	DryRun    *bool              `json:"dry_run"`
}

type customResourceEvent struct {
	RequestType        string `json:"RequestType"`
	ResourceProperties struct {
		ScanConfig string `json:"ScanConfig"`
	} `json:"ResourceProperties"`
}

type snsEvent struct {
	Records []struct {
		Sns struct {
			Message string `json:"Message"`
		} `json:"Sns"`
	} `json:"Records"`
}

type configMessage struct {
	ConfigRuleName  string `json:"ConfigRuleName"`
	ResourceID      string `json:"ResourceId"`
	ClientAccountID string `json:"ClientAccountId"`
	DryRun          *bool  `json:"dry_run"`
}

// shape picks out the keys that decide the event shape.
type shape struct {
	RequestType    *string         `json:"RequestType"`
	Records        json.RawMessage `json:"Records"`
	ConfigRuleName *string         `json:"ConfigRuleName"`
}

// Normalize decodes raw into a Request. The returned Envelope must be passed
// to Respond.
func Normalize(raw []byte) (engine.Request, Envelope, error) {
	var sh shape
	if err := json.Unmarshal(raw, &sh); err != nil {
		return engine.Request{}, EnvelopeDirect, fmt.Errorf("decode event: %w", err)
	}
	switch {
	case sh.RequestType != nil:
		req, err := fromCustomResource(raw)
		return req, EnvelopeCustomResource, err
	case len(sh.Records) > 0 && string(sh.Records) != "null":
		req, err := fromSNS(raw)
		return req, EnvelopeConfigEvent, err
	case sh.ConfigRuleName != nil:
		req, err := fromConfigMessage(raw)
		return req, EnvelopeConfigEvent, err
	default:
		req, err := fromDirect(raw)
		return req, EnvelopeDirect, err
	}
}

func fromDirect(raw []byte) (engine.Request, error) {
	var ev directEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return engine.Request{}, fmt.Errorf("decode direct event: %w", err)
	}
	req := engine.Request{
		Config: ev.Config,
		DryRun: true,
	}
	if req.Config == nil {
		req.Config = &policy.ScanConfig{}
	}
	if ev.Remediate != nil {
		req.Remediate = *ev.Remediate
	}
	if ev.DryRun != nil {
		req.DryRun = *ev.DryRun
	}
	return req, nil
}

// fromCustomResource reads the embedded ScanConfig on Create. Update and
// Delete requests run a plain scan.
func fromCustomResource(raw []byte) (engine.Request, error) {
	var ev customResourceEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return engine.Request{}, fmt.Errorf("decode custom resource event: %w", err)
	}
	if ev.RequestType != "Create" {
		return fromDirect([]byte("{}"))
	}
	if ev.ResourceProperties.ScanConfig == "" {
		return engine.Request{}, errors.New("custom resource event has no ResourceProperties.ScanConfig")
	}
	req, err := fromDirect([]byte(ev.ResourceProperties.ScanConfig))
	if err != nil {
		return engine.Request{}, fmt.Errorf("ScanConfig: %w", err)
	}
	return req, nil
}

func fromSNS(raw []byte) (engine.Request, error) {
	var ev snsEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return engine.Request{}, fmt.Errorf("decode SNS event: %w", err)
	}
	if len(ev.Records) == 0 {
		return engine.Request{}, errors.New("SNS event has no records")
	}
	req, err := fromConfigMessage([]byte(ev.Records[0].Sns.Message))
	if err != nil {
		return engine.Request{}, fmt.Errorf("SNS message: %w", err)
	}
	return req, nil
}

// fromConfigMessage targets the rule's actions at the one bucket named in
// the evaluation.
func fromConfigMessage(raw []byte) (engine.Request, error) {
	var msg configMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return engine.Request{}, fmt.Errorf("decode config message: %w", err)
	}
	actions, ok := ConfigRules[msg.ConfigRuleName]
	if !ok {
		return engine.Request{}, fmt.Errorf("%w: %s", ErrUnknownRule, msg.ConfigRuleName)
	}
	if msg.ResourceID == "" {
		return engine.Request{}, errors.New("config event has no ResourceId")
	}

	req := engine.Request{
		Config: &policy.ScanConfig{
			ExcludeBuckets: []string{},
			IncludeBuckets: []string{msg.ResourceID},
		},
		Remediate: true,
		DryRun:    true,
		AccountID: msg.ClientAccountID,
		Actions:   actions,
	}
	if msg.DryRun != nil {
		req.DryRun = *msg.DryRun
	}
	return req, nil
}

// HTTPResponse is the proxy-style reply for direct and config events.
type HTTPResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// CustomResourceResponse is the reply for CloudFormation custom resources.
type CustomResourceResponse struct {
	Status string             `json:"Status"`
	Data   CustomResourceData `json:"Data"`
}

// CustomResourceData carries the scan result to the stack.
type CustomResourceData struct {
	Message string             `json:"message"`
	Results *models.ScanResult `json:"results"`
}

// Respond wraps result for env.
func Respond(env Envelope, result *models.ScanResult) (any, error) {
	if env == EnvelopeCustomResource {
		return CustomResourceResponse{
			Status: "SUCCESS",
			Data:   CustomResourceData{Message: "Scan completed", Results: result},
		}, nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return HTTPResponse{StatusCode: 200, Body: string(body)}, nil
}

// ErrorResponse is the reply for an event that could not be normalised.
// Unknown config rules are client errors; anything else is a server error.
func ErrorResponse(env Envelope, err error) any {
	if env == EnvelopeCustomResource {
		return CustomResourceResponse{
			Status: "FAILED",
			Data:   CustomResourceData{Message: err.Error()},
		}
	}
	code := 500
	if errors.Is(err, ErrUnknownRule) {
		code = 400
	}
	return HTTPResponse{StatusCode: code, Body: err.Error()}
}
