package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the FraudLens MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScoreTransaction = mcp.NewTool("score_transaction",
	mcp.WithDescription(
		"Score a single payment transaction for fraud risk. "+
			"Returns a risk score (0-100), a risk level (low/medium/high), "+
			"and a ranked explanation of which transaction features drove the score."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("Unique transaction identifier (e.g. 'tx_8c41f2')")),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Transaction amount in the account currency (e.g. 249.99)")),
	mcp.WithString("timestamp",
		mcp.Required(),
		mcp.Description("Transaction time in RFC 3339 format (e.g. '2026-08-29T03:12:00Z')")),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the paying user")),
	mcp.WithString("merchant_id",
		mcp.Description("Merchant the transaction was made at")),
	mcp.WithString("location",
		mcp.Description("Transaction location (e.g. 'US-CA')")),
	mcp.WithString("device_id",
		mcp.Description("Device the transaction originated from")),
	mcp.WithString("ip_address",
		mcp.Description("Originating IP address")),
)

var ToolScoreBatch = mcp.NewTool("score_batch",
	mcp.WithDescription(
		"Score multiple transactions as one batch. Results come back in "+
			"submission order under a batch ID that can be fetched later with "+
			"get_batch. By default the batch aborts on the first invalid "+
			"transaction; pass policy 'continue' to score the rest and mark "+
			"failures inline."),
	mcp.WithString("transactions_json",
		mcp.Required(),
		mcp.Description("JSON array of transaction objects, each with "+
			"transaction_id, amount, timestamp (RFC 3339), user_id, and "+
			"optionally merchant_id, location, device_id, ip_address")),
	mcp.WithString("policy",
		mcp.Description("Failure policy: 'fail_fast' (default) or 'continue'")),
)

var ToolGetAssessment = mcp.NewTool("get_assessment",
	mcp.WithDescription(
		"Look up a previously computed fraud assessment by transaction ID. "+
			"Returns the stored risk score, level, and explanation without re-scoring."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("Transaction ID from a previous score_transaction call")),
)

var ToolGetBatch = mcp.NewTool("get_batch",
	mcp.WithDescription(
		"Fetch a stored batch scoring result by batch ID. "+
			"Shows per-transaction outcomes in submission order, including any "+
			"per-transaction failures if the batch ran under the continue policy."),
	mcp.WithString("batch_id",
		mcp.Required(),
		mcp.Description("Batch ID returned by a batch scoring request")),
)

var ToolGetModelMetrics = mcp.NewTool("get_model_metrics",
	mcp.WithDescription(
		"Get the current fraud model's evaluation metrics: accuracy, precision, "+
			"recall, F1 score, AUC-ROC, and the confusion matrix."),
)

var ToolRetrainModel = mcp.NewTool("retrain_model",
	mcp.WithDescription(
		"Trigger a fraud model retraining run. Blocks until retraining completes "+
			"and returns the updated evaluation metrics. "+
			"Use get_model_metrics afterwards to compare against the previous model."),
)

var ToolGetFraudSummary = mcp.NewTool("get_fraud_summary",
	mcp.WithDescription(
		"Get aggregate fraud analytics over recently scored batches: total "+
			"transactions, fraud rate, risk level distribution, and average risk score."),
)
