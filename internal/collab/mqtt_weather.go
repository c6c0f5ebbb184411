// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/shedsolar/shedsolar/internal/infoview"
)

// weatherPayload is the small JSON document published on the configured MQTT
// topic: {"irradiance_w_m2": 412.0, "outside_temp_c": 3.5}.
type weatherPayload struct {
	IrradianceWM2 float64 `json:"irradiance_w_m2"`
	OutsideTempC  float64 `json:"outside_temp_c"`
}

// MQTTWeatherProducer is the reference WeatherProducer adapter: it
// subscribes to an MQTT topic carrying irradiance and outside-temperature
// readings and republishes them as a WeatherSnapshot, the same bridging
// pattern the retrieved pack's automatedhome/solar and
// lachlan2k/huawei-solar-mqtt-relay repos use for telemetry ingestion.
type MQTTWeatherProducer struct {
	Broker   string
	ClientID string
	Topic    string
	Log      zerolog.Logger
}

var _ WeatherProducer = (*MQTTWeatherProducer)(nil)

// Run connects to the broker, subscribes to Topic, and republishes every
// message onto out until ctx is canceled.
func (m *MQTTWeatherProducer) Run(ctx context.Context, out *infoview.View[WeatherSnapshot]) error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.Broker).
		SetClientID(m.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		var p weatherPayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			m.Log.Warn().Err(err).Str("topic", msg.Topic()).Msg("weather: malformed MQTT payload")
			return
		}
		out.Set(WeatherSnapshot{IrradianceWM2: p.IrradianceWM2, OutsideTempC: p.OutsideTempC})
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("collab: weather: connect %s: %w", m.Broker, token.Error())
	}
	defer client.Disconnect(250)

	if token := client.Subscribe(m.Topic, 0, nil); token.Wait() && token.Error() != nil {
		return fmt.Errorf("collab: weather: subscribe %s: %w", m.Topic, token.Error())
	}
	defer client.Unsubscribe(m.Topic)

	<-ctx.Done()
	return ctx.Err()
}
