// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "FaceAttend")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "faceattend.log")
	viper.SetDefault("main.log.level", "info")

	viper.SetDefault("camera.index", 0)
	viper.SetDefault("camera.width", 640)
	viper.SetDefault("camera.height", 480)
	viper.SetDefault("camera.fps", 30)
	viper.SetDefault("camera.pollms", 100)
	viper.SetDefault("camera.maxreadfails", 30)

	viper.SetDefault("detector.cascadepath", "haarcascade_frontalface_default.xml")
	viper.SetDefault("detector.scalefactor", 1.1)
	viper.SetDefault("detector.minneighbors", 8)
	viper.SetDefault("detector.minsize", 60)
	viper.SetDefault("detector.filter.minaspect", 0.7)
	viper.SetDefault("detector.filter.maxaspect", 1.3)
	viper.SetDefault("detector.filter.minside", 80)
	viper.SetDefault("detector.filter.maxside", 400)

	viper.SetDefault("recognizer.threshold", 50.0)
	viper.SetDefault("recognizer.lenientband", 1.6)
	viper.SetDefault("recognizer.radius", 1)
	viper.SetDefault("recognizer.neighbors", 8)
	// gridx and gridy mirror the backend's fixed 8x8 histogram grid.
	viper.SetDefault("recognizer.gridx", 8)
	viper.SetDefault("recognizer.gridy", 8)
	viper.SetDefault("recognizer.modelpath", "models/trained_model.yml")

	viper.SetDefault("training.facesdir", "faces")
	viper.SetDefault("training.modelsdir", "models")
	viper.SetDefault("training.minimages", 7)
	viper.SetDefault("training.imagesize", 200)
	viper.SetDefault("training.capturen", 30)
	viper.SetDefault("training.delayms", 100)

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "attendance.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "faceattend")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "faceattend")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})

	viper.SetDefault("export.path", "exports")
}
