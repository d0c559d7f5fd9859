package config

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

var Presets = map[string]*Config{
	"balance": preset(func(c *Config) {
		c.Controller = "lqr"
		c.InitState = InitStateConfig{Theta: 0.1}
	}),
	"recover": preset(func(c *Config) {
		c.Controller = "lqr"
		c.Duration = 20.0
		c.InitState = InitStateConfig{Theta: 0.5}
	}),
	"track": preset(func(c *Config) {
		c.Controller = "lqr"
		c.Duration = 20.0
		c.InitState = InitStateConfig{Theta: 0.05}
		c.Reference = ReferenceConfig{X: 1.0}
	}),
	"nudge": preset(func(c *Config) {
		c.Controller = "lqr"
		c.Duration = 15.0
		c.Disturbance = DisturbanceConfig{Profile: "pulse", Amplitude: 10.0, Start: 2.0, Duration: 0.2}
	}),
	"gusty": preset(func(c *Config) {
		c.Controller = "lqr"
		c.Duration = 30.0
		c.Seed = 7
		c.Disturbance = DisturbanceConfig{Profile: "perlin", Amplitude: 8.0, Duration: 2.0}
	}),
	"freefall": preset(func(c *Config) {
		c.Controller = "none"
		c.Duration = 5.0
		c.InitState = InitStateConfig{Theta: 0.1}
	}),
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
