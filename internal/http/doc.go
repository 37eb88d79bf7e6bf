// Package http serves the storefront: the JSON APIs used by the browser and
// the server-rendered CMS pages.
//
// Routes:
//   - Contact relay: POST /api/contact
//   - Payments: POST /api/stripe/checkout, GET /api/stripe/product/{productId},
//     POST /api/stripe/products/batch
//   - Carts: /api/cart, /api/cart/{cartId}, /api/cart/{cartId}/items/{itemId},
//     /api/cart/{cartId}/open
//   - Consent: /api/consent/{visitorId}
//   - Pages: /sitemap.xml, /success, and every other path through the CMS
//     page pipeline
package http
