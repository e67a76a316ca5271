package database

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

const (
	PermissionAdmin      string = "Admin"
	PermissionSupervisor string = "Supervisor"
	PermissionOperator   string = "Operator"
)

const (
	UserActive   string = "Active"
	UserDisabled string = "Disabled"
)

const (
	DeviceNormal  string = "normal"
	DeviceWarning string = "warning"
	DeviceFaulty  string = "faulty"
	DeviceOffline string = "offline"
)

const (
	WarningTemperatureConstant string = "temperature_constant"
	WarningHumidityConstant    string = "humidity_constant"
	WarningPHConstant          string = "ph_constant"
)

type User struct {
	ID              uint   `gorm:"primaryKey"`
	Username        string `gorm:"uniqueIndex;not null"`
	Password        string `gorm:"not null"`
	PermissionLevel string `gorm:"size:20;not null;default:Operator"`
	Email           string
	Phone           string
	Status          string `gorm:"size:20;not null;default:Active"`
	HireDate        sql.NullTime
	LinkedDevices   int    `gorm:"default:0"`
	CreatedBy       string
	CreatedAt       time.Time
}

type Device struct {
	ID               uint   `gorm:"primaryKey"`
	DeviceName       string `gorm:"not null"`
	DeviceCode       string `gorm:"uniqueIndex;not null"`
	Status           string `gorm:"size:20;not null;default:normal"`
	Operator         string
	FaultDescription string
	WarningType      sql.NullString
	WarningValue     sql.NullFloat64
	WarningTime      sql.NullTime
	CreatedAt        time.Time

	Readings []SensorReading `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
}

type SensorReading struct {
	ID          uint `gorm:"primaryKey"`
	DeviceID    uint `gorm:"index:idx_reading_device_ts,priority:1;not null"`
	Timestamp   time.Time `gorm:"index:idx_reading_device_ts,priority:2;not null"`
	Temperature float64
	Humidity    float64
	PH          float64
	Moisture    float64
}

type OperationLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Type      string `gorm:"size:40;not null"`
	Message   string `gorm:"not null"`
	Details   datatypes.JSON
	Timestamp time.Time
}
