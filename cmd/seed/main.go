package main

import (
	"fmt"
	"time"

	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	products := []models.Product{
		{
			Name:        "Caixa de Folhas Verdes",
			Description: "Alface crespa, rucula e espinafre hidroponicos colhidos no dia.",
			Unit:        "box",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(64.90)),
			Tags:        models.StringArray([]string{"folhas", "hidroponico", "assinatura"}),
			IsActive:    true,
			SortOrder:   300,
		},
		{
			Name:        "Caixa Familia",
			Description: "Mix semanal com folhas, tomate cereja, pepino e ervas frescas.",
			Unit:        "box",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(119.90)),
			Tags:        models.StringArray([]string{"mix", "familia", "assinatura"}),
			IsActive:    true,
			SortOrder:   280,
		},
		{
			Name:        "Alface Crespa",
			Description: "Unidade avulsa, cultivo NFT sem agrotoxicos.",
			Unit:        "unit",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(6.50)),
			Tags:        models.StringArray([]string{"folhas", "avulso"}),
			IsActive:    true,
			SortOrder:   220,
		},
		{
			Name:        "Tomate Cereja",
			Description: "Bandeja de 300g, colheita da semana.",
			Unit:        "tray",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(14.90)),
			Tags:        models.StringArray([]string{"frutos", "avulso"}),
			IsActive:    true,
			SortOrder:   200,
		},
		{
			Name:        "Manjericao Fresco",
			Description: "Maco de manjericao hidroponico.",
			Unit:        "bunch",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(8.90)),
			Tags:        models.StringArray([]string{"ervas", "avulso"}),
			IsActive:    true,
			SortOrder:   180,
		},
		{
			Name:        "Caixa Detox",
			Description: "Couve, espinafre, gengibre e limao para sucos verdes.",
			Unit:        "box",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(84.90)),
			Tags:        models.StringArray([]string{"detox", "assinatura"}),
			IsActive:    false,
			SortOrder:   120,
		},
	}

	productIDs := map[string]uint{}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("name = ?", product.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Name, err)
				continue
			}
			stdLog.Printf("Created product: %s", product.Name)
			productIDs[product.Name] = product.ID
		} else {
			stdLog.Printf("Product already exists: %s", product.Name)
			productIDs[existing.Name] = existing.ID
		}
	}

	customer := models.Customer{
		Name:     "Mariana Costa",
		Email:    "mariana.costa@example.com",
		Phone:    "+5511987654321",
		Document: "39053344705",
		Status:   "active",
	}
	var existingCustomer models.Customer
	if err := models.DB.Where("email = ?", customer.Email).First(&existingCustomer).Error; err != nil {
		if err := models.DB.Create(&customer).Error; err != nil {
			stdLog.Printf("Failed to create customer %s: %v", customer.Email, err)
		} else {
			stdLog.Printf("Created customer: %s", customer.Email)
		}
	} else {
		customer = existingCustomer
		stdLog.Printf("Customer already exists: %s", customer.Email)
	}

	if customer.ID != 0 {
		address := models.Address{
			CustomerID: customer.ID,
			Label:      "home",
			Street:     "Rua das Hortensias",
			Number:     "128",
			District:   "Vila Madalena",
			City:       "Sao Paulo",
			State:      "SP",
			ZipCode:    "05434-000",
			IsDefault:  true,
		}
		var existingAddress models.Address
		if err := models.DB.Where("customer_id = ? AND street = ?", address.CustomerID, address.Street).First(&existingAddress).Error; err != nil {
			if err := models.DB.Create(&address).Error; err != nil {
				stdLog.Printf("Failed to create address: %v", err)
			} else {
				stdLog.Println("Created default address")
			}
			existingAddress = address
		} else {
			stdLog.Println("Address already exists")
		}

		seedSubscription(stdLog.Printf, customer.ID, existingAddress.ID, productIDs)
	}

	seedSetting(stdLog.Printf, constants.SettingKeyDeliveryConfig, map[string]interface{}{
		constants.SettingFieldCutoffTime:      constants.DefaultDeliveryCutoff,
		constants.SettingFieldDefaultTimeSlot: constants.TimeSlotMorning,
		constants.SettingFieldHolidays: []string{
			"2026-09-07",
			"2026-10-12",
			"2026-11-02",
			"2026-11-15",
			"2026-12-25",
		},
	})
	seedSetting(stdLog.Printf, constants.SettingKeyOrderConfig, map[string]interface{}{
		constants.SettingFieldChargeExpireMinutes: 30,
	})

	fmt.Println("\nSeed data created successfully.")
	fmt.Println("Summary:")
	fmt.Println("- 6 products (boxes, loose produce and herbs)")
	fmt.Println("- 1 customer with a default address")
	fmt.Println("- 1 weekly subscription")
	fmt.Println("- delivery_config and order_config settings")
}

type printfFunc func(format string, v ...interface{})

func seedSubscription(printf printfFunc, customerID, addressID uint, productIDs map[string]uint) {
	boxID := productIDs["Caixa Familia"]
	herbID := productIDs["Manjericao Fresco"]
	if boxID == 0 || herbID == 0 {
		printf("Skipping subscription seed: products missing")
		return
	}

	var existing models.Subscription
	if err := models.DB.Where("customer_id = ?", customerID).First(&existing).Error; err == nil {
		printf("Subscription already exists for customer %d", customerID)
		return
	}

	next := nextWeekday(time.Now(), time.Wednesday)
	sub := models.Subscription{
		CustomerID:        customerID,
		Frequency:         constants.SubscriptionFrequencyWeekly,
		DeliveryWeekday:   3,
		PreferredTimeSlot: constants.TimeSlotMorning,
		PaymentMethod:     constants.PaymentMethodPix,
		Status:            constants.SubscriptionStatusActive,
		NextDeliveryDate:  &next,
		CycleAmount:       models.NewMoneyFromDecimal(decimal.NewFromFloat(128.80)),
		Items: []models.SubscriptionItem{
			{ProductID: boxID, Name: "Caixa Familia", Unit: "box", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(119.90)), Quantity: 1},
			{ProductID: herbID, Name: "Manjericao Fresco", Unit: "bunch", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(8.90)), Quantity: 1},
		},
	}
	if addressID != 0 {
		sub.AddressID = &addressID
	}
	if err := models.DB.Create(&sub).Error; err != nil {
		printf("Failed to create subscription: %v", err)
		return
	}
	printf("Created weekly subscription for customer %d", customerID)
}

func seedSetting(printf printfFunc, key string, value map[string]interface{}) {
	var setting models.Setting
	if err := models.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		setting = models.Setting{Key: key, ValueJSON: models.JSON(value)}
		if err := models.DB.Create(&setting).Error; err != nil {
			printf("Failed to create setting %s: %v", key, err)
			return
		}
		printf("Created setting: %s", key)
		return
	}
	setting.ValueJSON = models.JSON(value)
	if err := models.DB.Save(&setting).Error; err != nil {
		printf("Failed to update setting %s: %v", key, err)
		return
	}
	printf("Updated setting: %s", key)
}

func nextWeekday(from time.Time, weekday time.Weekday) time.Time {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	offset := (int(weekday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
