package db

import "github.com/fornadaapp/fornada/internal/models"

type Tenant = models.Tenant
type Order = models.Order
type OrderItem = models.OrderItem
type OrderStatus = models.OrderStatus
type Customer = models.Customer
type MerchantUser = models.MerchantUser
type Category = models.Category
type Product = models.Product
type ProductVariation = models.ProductVariation

const (
	StatusPending    = models.StatusPending
	StatusNew        = models.StatusNew
	StatusPreparing  = models.StatusPreparing
	StatusDelivering = models.StatusDelivering
	StatusCompleted  = models.StatusCompleted
	StatusCancelled  = models.StatusCancelled
)
