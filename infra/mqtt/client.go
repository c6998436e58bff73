package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/dispatchboard/core/model"
	coremon "github.com/kilianp07/dispatchboard/core/monitoring"
	coremqtt "github.com/kilianp07/dispatchboard/core/mqtt"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

const (
	DefaultCommandTopic = "dispatch/operations"
	DefaultAckTopic     = "dispatch/acks"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	CommandTopic string          `json:"command_topic"`
	AckTopic     string          `json:"ack_topic"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	AuthMethod   string          `json:"auth_method"`
	QoS          map[string]byte `json:"qos"`
	LWTTopic     string          `json:"lwt_topic"`
	LWTPayload   string          `json:"lwt_payload"`
	LWTQoS       byte            `json:"lwt_qos"`
	LWTRetain    bool            `json:"lwt_retain"`
	MaxRetries   int             `json:"max_retries"`
	BackoffMS    int             `json:"backoff_ms"`
	TLSConfig    *tls.Config     `json:"-"`
}

// SetDefaults fills unset topics and retry settings.
func (c *Config) SetDefaults() {
	if c.CommandTopic == "" {
		c.CommandTopic = DefaultCommandTopic
	}
	if c.AckTopic == "" {
		c.AckTopic = DefaultAckTopic
	}
	if c.ClientID == "" {
		c.ClientID = "dispatchboard-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the broker address.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	return nil
}

// Command is the payload published for every operation.
type Command struct {
	CommandID string                   `json:"command_id"`
	Operation *model.DispatchOperation `json:"operation"`
	Timestamp int64                    `json:"timestamp"`
}

// Ack is the backend's answer to a Command.
type Ack struct {
	CommandID string `json:"command_id"`
	Accepted  *bool  `json:"accepted,omitempty"`
	Error     string `json:"error,omitempty"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the core mqtt.Client interface using Eclipse Paho.
type PahoClient struct {
	cli          pahoClient
	commandTopic string
	ackTopic     string
	qos          map[string]byte

	mu         sync.Mutex
	acks       map[string]chan Ack
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ack topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		commandTopic: cfg.CommandTopic,
		ackTopic:     cfg.AckTopic,
		acks:         make(map[string]chan Ack),
		logger:       log,
		qos:          cfg.QoS,
		maxRetries:   cfg.MaxRetries,
		backoff:      time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(pc.ackTopic, pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", token.Error())
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("mqtt: tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("mqtt: load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("mqtt: read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 1
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var a Ack
	if err := json.Unmarshal(msg.Payload(), &a); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.acks[a.CommandID]
	if !ok {
		return
	}
	select {
	case ch <- a:
	default:
	}
	p.logger.Debugf("received ack %s", a.CommandID)
}

// SendOperation publishes op on the command topic and returns the command
// identifier used for acknowledgment tracking.
func (p *PahoClient) SendOperation(op *model.DispatchOperation) (string, error) {
	cmdID := uuid.NewString()
	payload, err := json.Marshal(Command{CommandID: cmdID, Operation: op, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return "", fmt.Errorf("mqtt: encode operation: %w", err)
	}

	// Registered before publishing so an early ack is not lost.
	p.mu.Lock()
	p.acks[cmdID] = make(chan Ack, 1)
	p.mu.Unlock()

	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(p.commandTopic, p.qosFor("command"), false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent operation %s as %s to %s", op.ID, cmdID, p.commandTopic)
			return cmdID, nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	p.forget(cmdID)
	coremon.CaptureException(publishErr, map[string]string{"operation_id": op.ID, "module": "mqtt"})
	return "", fmt.Errorf("mqtt: publish: %w", publishErr)
}

// WaitForAck blocks until an ack for the given command ID is received or
// the timeout expires. A refusal returns false with ErrRejected.
func (p *PahoClient) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.acks[commandID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("mqtt: unknown command %s", commandID)
	}
	defer p.forget(commandID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case a := <-ch:
		if a.Error != "" || (a.Accepted != nil && !*a.Accepted) {
			return false, fmt.Errorf("%w: %s", coremqtt.ErrRejected, a.Error)
		}
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("mqtt: %s: %w", commandID, coremqtt.ErrAckTimeout)
	}
}

func (p *PahoClient) forget(commandID string) {
	p.mu.Lock()
	delete(p.acks, commandID)
	p.mu.Unlock()
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
