// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbackSnapshot_PVPowerW(t *testing.T) {
	o := OutbackSnapshot{PVVoltageV: 28.5, PVCurrentA: 7.0}
	assert.InDelta(t, 199.5, o.PVPowerW(), 1e-9)
}

func TestWeatherPayload_Unmarshal(t *testing.T) {
	var p weatherPayload
	require.NoError(t, json.Unmarshal([]byte(`{"irradiance_w_m2": 412.5, "outside_temp_c": 3.25}`), &p))
	assert.Equal(t, 412.5, p.IrradianceWM2)
	assert.Equal(t, 3.25, p.OutsideTempC)
}
